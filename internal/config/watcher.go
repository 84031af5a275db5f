package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads configuration when files under the config directory
// change. Only the reloadable subset takes effect at runtime (cache TTL
// policy, log level); process-lifetime settings such as the listener port,
// pool sizes, and breaker thresholds require a restart.
type Watcher struct {
	current   *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewWatcher creates a configuration watcher. Watching is enabled only in
// development; other environments get a passive holder.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		current:   initial,
		callbacks: make([]func(*Config), 0),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if !initial.IsDevelopment() {
		logger.Info("configuration hot reload disabled",
			zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	if err := w.watchConfigDir(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config files: %w", err)
	}

	go w.watchLoop()

	logger.Info("configuration hot reload enabled",
		zap.String("environment", string(initial.Environment)))

	return w, nil
}

// watchConfigDir registers the config directory and its files.
func (w *Watcher) watchConfigDir() error {
	configDir := os.Getenv("CE_CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		// Nothing to watch; the service runs on defaults and env vars.
		return nil
	}

	return filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || isConfigFile(path) {
			if addErr := w.watcher.Add(path); addErr != nil {
				w.logger.Warn("failed to watch config path",
					zap.String("path", path), zap.Error(addErr))
			}
		}
		return nil
	})
}

// watchLoop debounces change events and triggers reloads.
func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isConfigFile(event.Name) {
				w.logger.Info("configuration file changed",
					zap.String("file", event.Name),
					zap.String("operation", event.Op.String()))

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// reload re-runs the loader and swaps the active configuration.
func (w *Watcher) reload() {
	newConfig, err := Load()
	if err != nil {
		w.logger.Error("invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	if reflect.DeepEqual(stripVolatile(old), stripVolatile(newConfig)) {
		w.mu.Unlock()
		w.logger.Debug("configuration unchanged after reload")
		return
	}
	w.current = newConfig
	w.mu.Unlock()

	w.logChanges(old, newConfig)
	w.notify(newConfig)
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Config returns the active configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *Watcher) notify(newConfig *Config) {
	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for i, callback := range callbacks {
		go func(idx int, cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked",
						zap.Int("callback_index", idx), zap.Any("panic", r))
				}
			}()
			cb(newConfig)
		}(i, callback)
	}
}

func (w *Watcher) logChanges(old, new *Config) {
	changes := make([]string, 0)

	if old.Cache.MemoryTTL != new.Cache.MemoryTTL {
		changes = append(changes, fmt.Sprintf("cache.memory_ttl: %s -> %s", old.Cache.MemoryTTL, new.Cache.MemoryTTL))
	}
	if old.Cache.ActiveCaseTTL != new.Cache.ActiveCaseTTL {
		changes = append(changes, fmt.Sprintf("cache.active_case_ttl: %s -> %s", old.Cache.ActiveCaseTTL, new.Cache.ActiveCaseTTL))
	}
	if old.Cache.ClosedCaseTTL != new.Cache.ClosedCaseTTL {
		changes = append(changes, fmt.Sprintf("cache.closed_case_ttl: %s -> %s", old.Cache.ClosedCaseTTL, new.Cache.ClosedCaseTTL))
	}
	if old.Logging.Level != new.Logging.Level {
		changes = append(changes, fmt.Sprintf("logging.level: %s -> %s", old.Logging.Level, new.Logging.Level))
	}

	if len(changes) > 0 {
		w.logger.Info("configuration changes applied", zap.Strings("changes", changes))
	} else {
		w.logger.Info("configuration reloaded; changed settings require restart to take effect")
	}
}

// stripVolatile zeroes fields that differ between loads without being
// meaningful changes.
func stripVolatile(cfg *Config) Config {
	c := *cfg
	c.LoadedFrom = nil
	return c
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
