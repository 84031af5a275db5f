package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from layered sources. Priority, lowest first:
// defaults, base file, environment-specific file, local overrides
// (development only), environment variables.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders map[string]FileLoader
}

// FileLoader parses one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a configuration loader rooted at basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}

	loader := &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
		fileLoaders: make(map[string]FileLoader),
	}

	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})

	return loader
}

// RegisterLoader registers a loader for a file extension.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders[loader.Extension()] = loader
}

// Load assembles the configuration from all sources and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.Environment = l.environment
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			// Local file errors are warnings in development
			fmt.Fprintf(os.Stderr, "warning: failed to load local config: %v\n", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads one named configuration file, trying each registered format.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for ext, loader := range l.fileLoaders {
		filename := fmt.Sprintf("%s.%s", name, ext)
		path := filepath.Join(l.basePath, filename)

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		defer file.Close()

		if err := loader.Load(file, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}

	return os.ErrNotExist
}

// loadEnvironmentVariables overlays CE_-prefixed environment variables; the
// highest-priority source.
func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	// Server
	if val := os.Getenv("CE_SERVER_PORT"); val != "" {
		if port := parseInt(val); port > 0 {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("CE_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}

	// Graph upstream
	if val := os.Getenv("CE_GRAPH_ENDPOINT"); val != "" {
		cfg.Graph.Endpoint = val
	}
	if val := os.Getenv("CE_GRAPH_TIMEOUT"); val != "" {
		if d := parseDuration(val); d > 0 {
			cfg.Graph.Timeout = d
		}
	}
	if val := os.Getenv("CE_GRAPH_MAX_RETRIES"); val != "" {
		cfg.Graph.MaxRetries = parseInt(val)
	}

	// CaseDB
	if val := os.Getenv("CE_CASEDB_DSN"); val != "" {
		cfg.CaseDB.DSN = val
	}

	// Cache
	if val := os.Getenv("CE_CACHE_MEMORY_CAPACITY"); val != "" {
		if n := parseInt(val); n > 0 {
			cfg.Cache.MemoryCapacity = n
		}
	}
	if val := os.Getenv("CE_CACHE_MEMORY_TTL"); val != "" {
		if d := parseDuration(val); d > 0 {
			cfg.Cache.MemoryTTL = d
		}
	}
	if val := os.Getenv("CE_CACHE_ENABLE_PERSISTENT"); val != "" {
		cfg.Cache.EnablePersistent = parseBool(val)
	}

	// Logging
	if val := os.Getenv("CE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("CE_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Observability
	if val := os.Getenv("CE_METRICS_ENABLED"); val != "" {
		cfg.Metrics.Enabled = parseBool(val)
	}
	if val := os.Getenv("CE_TRACING_ENABLED"); val != "" {
		cfg.Tracing.Enabled = parseBool(val)
	}
	if val := os.Getenv("CE_TRACING_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
	}

	// Auth
	if val := os.Getenv("CE_AUTH_PROVIDER"); val != "" {
		cfg.Auth.Provider = val
	}
	if val := os.Getenv("CE_AUTH_JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}
	if val := os.Getenv("CE_AUTH_ENFORCE_CLIENT"); val != "" {
		cfg.Auth.EnforceClient = parseBool(val)
	}
	if val := os.Getenv("CE_SUPABASE_URL"); val != "" {
		cfg.Auth.SupabaseURL = val
	}
	if val := os.Getenv("CE_SUPABASE_SERVICE_ROLE_KEY"); val != "" {
		cfg.Auth.SupabaseKey = val
	}
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	return decoder.Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	return decoder.Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

func parseInt(s string) int {
	val, _ := strconv.Atoi(s)
	return val
}

func parseBool(s string) bool {
	val, _ := strconv.ParseBool(s)
	return val
}

func parseDuration(s string) time.Duration {
	// Accept both Go duration strings and bare seconds.
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Load loads configuration from the conventional location. This is the
// entrypoint main() uses.
func Load() (*Config, error) {
	basePath := os.Getenv("CE_CONFIG_DIR")
	loader := NewLoader(basePath, getEnvironment())
	return loader.Load()
}
