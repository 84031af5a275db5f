// Package config provides configuration management for the context engine:
// typed settings with defaults, layered loading from files and environment
// variables, validation, and hot reload of the reloadable subset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config holds all configuration for the service.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment"`

	Server  Server  `yaml:"server" json:"server"`
	Graph   Graph   `yaml:"graph" json:"graph"`
	CaseDB  CaseDB  `yaml:"casedb" json:"casedb"`
	Cache   Cache   `yaml:"cache" json:"cache"`
	Build   Build   `yaml:"build" json:"build"`
	Logging Logging `yaml:"logging" json:"logging"`
	Metrics Metrics `yaml:"metrics" json:"metrics"`
	Tracing Tracing `yaml:"tracing" json:"tracing"`
	Auth    Auth    `yaml:"auth" json:"auth"`
	CORS    CORS    `yaml:"cors" json:"cors"`

	// LoadedFrom records the sources that produced this configuration.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Port            int           `yaml:"port" json:"port"`
	Host            string        `yaml:"host" json:"host"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// Graph configures the knowledge-graph upstream client.
type Graph struct {
	Endpoint                string        `yaml:"endpoint" json:"endpoint"`
	Timeout                 time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries              int           `yaml:"max_retries" json:"max_retries"`
	RetryBase               time.Duration `yaml:"retry_base" json:"retry_base"`
	RetryMaxDelay           time.Duration `yaml:"retry_max_delay" json:"retry_max_delay"`
	BreakerFailureThreshold uint32        `yaml:"breaker_failure_threshold" json:"breaker_failure_threshold"`
	BreakerOpenDuration     time.Duration `yaml:"breaker_open_duration" json:"breaker_open_duration"`
}

// CaseDB configures the relational case store connection.
type CaseDB struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
}

// Cache configures the tier chain and its TTL policy.
type Cache struct {
	EnableMemory     bool          `yaml:"enable_memory" json:"enable_memory"`
	EnablePersistent bool          `yaml:"enable_persistent" json:"enable_persistent"`
	MemoryCapacity   int           `yaml:"memory_capacity" json:"memory_capacity"`
	MemoryTTL        time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	ActiveCaseTTL    time.Duration `yaml:"active_case_ttl" json:"active_case_ttl"`
	ClosedCaseTTL    time.Duration `yaml:"closed_case_ttl" json:"closed_case_ttl"`
	SweepInterval    time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// Build configures the fan-out orchestrator.
type Build struct {
	OverallDeadline       time.Duration `yaml:"overall_deadline" json:"overall_deadline"`
	MetadataTimeout       time.Duration `yaml:"metadata_timeout" json:"metadata_timeout"`
	ScoringBudget         time.Duration `yaml:"scoring_budget" json:"scoring_budget"`
	MaxParallelDimensions int           `yaml:"max_parallel_dimensions" json:"max_parallel_dimensions"`
	BatchWorkers          int           `yaml:"batch_workers" json:"batch_workers"`
	MaxBatchSize          int           `yaml:"max_batch_size" json:"max_batch_size"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json or console
}

// Metrics configures the Prometheus surface.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
}

// Auth configures the optional authentication door.
type Auth struct {
	Provider      string   `yaml:"provider" json:"provider"` // none, jwt, supabase
	JWTSecret     string   `yaml:"jwt_secret" json:"jwt_secret"`
	JWTIssuer     string   `yaml:"jwt_issuer" json:"jwt_issuer"`
	JWTAudience   []string `yaml:"jwt_audience" json:"jwt_audience"`
	EnforceClient bool     `yaml:"enforce_client" json:"enforce_client"`
	SupabaseURL   string   `yaml:"supabase_url" json:"supabase_url"`
	SupabaseKey   string   `yaml:"supabase_key" json:"supabase_key"`
}

// CORS configures cross-origin access.
type CORS struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// Default returns the configuration the service runs with when no file or
// environment overrides are present.
func Default() *Config {
	return &Config{
		Environment: getEnvironment(),
		Server: Server{
			Port:            8015,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    35 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  35 * time.Second,
		},
		Graph: Graph{
			Endpoint:                "http://localhost:8010",
			Timeout:                 20 * time.Second,
			MaxRetries:              3,
			RetryBase:               1 * time.Second,
			RetryMaxDelay:           30 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerOpenDuration:     60 * time.Second,
		},
		CaseDB: CaseDB{
			DSN:             "postgres://localhost:5432/casedb?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Cache: Cache{
			EnableMemory:     true,
			EnablePersistent: false,
			MemoryCapacity:   1000,
			MemoryTTL:        600 * time.Second,
			ActiveCaseTTL:    3600 * time.Second,
			ClosedCaseTTL:    86400 * time.Second,
			SweepInterval:    60 * time.Second,
		},
		Build: Build{
			OverallDeadline:       30 * time.Second,
			MetadataTimeout:       5 * time.Second,
			ScoringBudget:         250 * time.Millisecond,
			MaxParallelDimensions: 5,
			BatchWorkers:          5,
			MaxBatchSize:          50,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "context_engine",
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "context-engine",
			Endpoint:    "localhost:4317",
			SampleRate:  0.1,
			Insecure:    true,
		},
		Auth: Auth{
			Provider: "none",
		},
		CORS: CORS{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Graph.Endpoint == "" {
		return fmt.Errorf("graph.endpoint is required")
	}
	if c.Graph.Timeout <= 0 {
		return fmt.Errorf("graph.timeout must be positive")
	}
	if c.Graph.MaxRetries < 0 {
		return fmt.Errorf("graph.max_retries cannot be negative")
	}
	if c.Graph.BreakerFailureThreshold == 0 {
		return fmt.Errorf("graph.breaker_failure_threshold must be positive")
	}
	if c.Cache.MemoryCapacity <= 0 {
		return fmt.Errorf("cache.memory_capacity must be positive")
	}
	if c.Cache.MemoryTTL <= 0 || c.Cache.ActiveCaseTTL <= 0 || c.Cache.ClosedCaseTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Build.OverallDeadline <= 0 {
		return fmt.Errorf("build.overall_deadline must be positive")
	}
	if c.Build.MaxParallelDimensions <= 0 {
		return fmt.Errorf("build.max_parallel_dimensions must be positive")
	}
	if c.Build.MaxBatchSize <= 0 {
		return fmt.Errorf("build.max_batch_size must be positive")
	}
	switch c.Auth.Provider {
	case "", "none":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required for the jwt provider")
		}
	case "supabase":
		if c.Auth.SupabaseURL == "" || c.Auth.SupabaseKey == "" {
			return fmt.Errorf("auth.supabase_url and auth.supabase_key are required for the supabase provider")
		}
	default:
		return fmt.Errorf("unknown auth.provider: %s", c.Auth.Provider)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// getEnvironment resolves the deployment environment from the process
// environment, defaulting to development.
func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("CE_ENVIRONMENT")) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}
