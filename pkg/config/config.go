package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sitepulse/sitepulse/pkg/observability"
)

// Config holds all application configuration. Values are resolved in three
// layers: built-in defaults, then an optional YAML file, then SITEPULSE_*
// environment variables. Environment wins.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection settings for the distributed rate
// limiter.
type RedisConfig struct {
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// AuthConfig holds API-token settings
type AuthConfig struct {
	// TokenCacheSize bounds the in-process token lookup cache.
	TokenCacheSize int `yaml:"token_cache_size"`
	// DefaultTokenTTL applies to tokens created without an explicit expiry.
	DefaultTokenTTL time.Duration `yaml:"default_token_ttl"`
}

// RateLimitConfig holds request rate limit settings. These are
// operator-tunable at runtime through the config file watcher.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
	BurstSize         int           `yaml:"burst_size"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	// RetentionDays controls how long audit events are kept before the
	// janitor purges them.
	RetentionDays int `yaml:"retention_days"`
	// ArchivePath is where expiring events are written before deletion.
	// Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
	// FilePath enables a secondary file sink alongside the database logger.
	FilePath string `yaml:"file_path"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging. LogLevelName is the file-facing spelling ("debug", "info",
	// "warn", "error"); LogLevel is the resolved value the loggers take.
	LogLevelName string                 `yaml:"log_level"`
	LogLevel     observability.LogLevel `yaml:"-"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Auth: AuthConfig{
			TokenCacheSize:  1024,
			DefaultTokenTTL: 90 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 100,
			WindowDuration:    time.Minute,
			BurstSize:         10,
		},
		Audit: AuditConfig{
			RetentionDays: 365,
			ArchivePath:   "/var/lib/sitepulse/audit-archive",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "sitepulse-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from the optional file named by
// SITEPULSE_CONFIG_FILE, then applies SITEPULSE_* environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("SITEPULSE_CONFIG_FILE"))
}

// LoadConfigFile loads configuration from the given YAML file (empty path
// skips the file layer), then applies environment overrides and validates.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyFile overlays settings from a YAML file onto the config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if c.Observability.LogLevelName != "" {
		c.Observability.LogLevel = observability.ParseLevel(c.Observability.LogLevelName)
	}
	return nil
}

// applyEnv overlays SITEPULSE_* environment variables onto the config
func (c *Config) applyEnv() {
	// Server
	c.Server.Host = getEnv("SITEPULSE_HOST", c.Server.Host)
	c.Server.Port = getEnv("SITEPULSE_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SITEPULSE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SITEPULSE_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SITEPULSE_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SITEPULSE_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.HealthPort = getEnv("SITEPULSE_HEALTH_PORT", c.Server.HealthPort)

	// Database
	c.Database.URL = getEnv("SITEPULSE_POSTGRES_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("SITEPULSE_POSTGRES_MAX_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("SITEPULSE_POSTGRES_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getEnvDuration("SITEPULSE_POSTGRES_CONN_LIFETIME", c.Database.ConnMaxLifetime)

	// Redis
	c.Redis.URL = getEnv("SITEPULSE_REDIS_URL", c.Redis.URL)
	c.Redis.Password = getEnv("SITEPULSE_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("SITEPULSE_REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("SITEPULSE_REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.MaxRetries = getEnvInt("SITEPULSE_REDIS_MAX_RETRIES", c.Redis.MaxRetries)

	// Auth
	c.Auth.TokenCacheSize = getEnvInt("SITEPULSE_TOKEN_CACHE_SIZE", c.Auth.TokenCacheSize)
	c.Auth.DefaultTokenTTL = getEnvDuration("SITEPULSE_TOKEN_TTL", c.Auth.DefaultTokenTTL)

	// Rate limiting
	c.RateLimit.Enabled = getEnvBool("SITEPULSE_RATELIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerWindow = getEnvInt("SITEPULSE_RATELIMIT_REQUESTS", c.RateLimit.RequestsPerWindow)
	c.RateLimit.WindowDuration = getEnvDuration("SITEPULSE_RATELIMIT_WINDOW", c.RateLimit.WindowDuration)
	c.RateLimit.BurstSize = getEnvInt("SITEPULSE_RATELIMIT_BURST", c.RateLimit.BurstSize)

	// Audit
	c.Audit.RetentionDays = getEnvInt("SITEPULSE_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.ArchivePath = getEnv("SITEPULSE_AUDIT_ARCHIVE_PATH", c.Audit.ArchivePath)
	c.Audit.FilePath = getEnv("SITEPULSE_AUDIT_FILE_PATH", c.Audit.FilePath)

	// Observability
	if level := os.Getenv("SITEPULSE_LOG_LEVEL"); level != "" {
		c.Observability.LogLevel = observability.ParseLevel(level)
	}
	c.Observability.MetricsEnabled = getEnvBool("SITEPULSE_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("SITEPULSE_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("SITEPULSE_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("SITEPULSE_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("SITEPULSE_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("SITEPULSE_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database idle connections cannot exceed open connections")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 {
			return fmt.Errorf("rate limit requests per window must be positive")
		}
		if c.RateLimit.WindowDuration <= 0 {
			return fmt.Errorf("rate limit window duration must be positive")
		}
	}

	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}


// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
