package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitepulse/sitepulse/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{
			name:         "returns true for 'true'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			want:         true,
		},
		{
			name:         "returns true for '1'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "1",
			want:         true,
		},
		{
			name:         "returns false for 'false'",
			key:          "TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_BOOL_NOT_SET",
			defaultValue: true,
			envValue:     "",
			want:         true,
		},
		{
			name:         "returns true for 'TRUE' (case insensitive)",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "TRUE",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns parsed int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "42",
			want:         42,
		},
		{
			name:         "returns default for invalid int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "invalid",
			want:         10,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOT_SET",
			defaultValue: 10,
			envValue:     "",
			want:         10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns parsed duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default for invalid duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLogLevelResolution tests env-driven log level resolution
func TestLogLevelResolution(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  observability.LogLevel
	}{
		{name: "debug", level: "debug", want: observability.DebugLevel},
		{name: "DEBUG uppercase", level: "DEBUG", want: observability.DebugLevel},
		{name: "info", level: "info", want: observability.InfoLevel},
		{name: "warn", level: "warn", want: observability.WarnLevel},
		{name: "warning", level: "warning", want: observability.WarnLevel},
		{name: "error", level: "error", want: observability.ErrorLevel},
		{name: "invalid defaults to info", level: "invalid", want: observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("SITEPULSE_LOG_LEVEL", tt.level)
			defer os.Unsetenv("SITEPULSE_LOG_LEVEL")

			cfg := DefaultConfig()
			cfg.applyEnv()
			if cfg.Observability.LogLevel != tt.want {
				t.Errorf("resolved log level = %v, want %v", cfg.Observability.LogLevel, tt.want)
			}
		})
	}
}

// knownEnvVars lists every SITEPULSE_* variable the loader reads, so tests
// can isolate themselves from the ambient environment.
var knownEnvVars = []string{
	"SITEPULSE_CONFIG_FILE",
	"SITEPULSE_HOST",
	"SITEPULSE_PORT",
	"SITEPULSE_READ_TIMEOUT",
	"SITEPULSE_WRITE_TIMEOUT",
	"SITEPULSE_IDLE_TIMEOUT",
	"SITEPULSE_SHUTDOWN_TIMEOUT",
	"SITEPULSE_HEALTH_PORT",
	"SITEPULSE_POSTGRES_URL",
	"SITEPULSE_POSTGRES_MAX_CONNS",
	"SITEPULSE_POSTGRES_IDLE_CONNS",
	"SITEPULSE_POSTGRES_CONN_LIFETIME",
	"SITEPULSE_REDIS_URL",
	"SITEPULSE_REDIS_PASSWORD",
	"SITEPULSE_REDIS_DB",
	"SITEPULSE_REDIS_POOL_SIZE",
	"SITEPULSE_REDIS_MAX_RETRIES",
	"SITEPULSE_TOKEN_CACHE_SIZE",
	"SITEPULSE_TOKEN_TTL",
	"SITEPULSE_RATELIMIT_ENABLED",
	"SITEPULSE_RATELIMIT_REQUESTS",
	"SITEPULSE_RATELIMIT_WINDOW",
	"SITEPULSE_RATELIMIT_BURST",
	"SITEPULSE_AUDIT_RETENTION_DAYS",
	"SITEPULSE_AUDIT_ARCHIVE_PATH",
	"SITEPULSE_AUDIT_FILE_PATH",
	"SITEPULSE_LOG_LEVEL",
	"SITEPULSE_METRICS_ENABLED",
	"SITEPULSE_OTEL_ENABLED",
	"SITEPULSE_OTEL_ENDPOINT",
	"SITEPULSE_OTEL_SERVICE_NAME",
	"SITEPULSE_OTEL_SERVICE_VERSION",
	"SITEPULSE_OTEL_INSECURE",
}

// clearEnv unsets every known variable and restores the originals on cleanup
func clearEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string)
	for _, k := range knownEnvVars {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

// TestDefaultConfig tests the built-in defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %v, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %v, want 25", cfg.Database.MaxOpenConns)
	}
	if cfg.Audit.RetentionDays != 365 {
		t.Errorf("RetentionDays = %v, want 365", cfg.Audit.RetentionDays)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = false, want true")
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
	if cfg.Observability.OTelServiceName != "sitepulse-api" {
		t.Errorf("OTelServiceName = %v, want sitepulse-api", cfg.Observability.OTelServiceName)
	}
}

// TestLoadConfig_EnvOverrides tests environment variable overrides
func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)

	os.Setenv("SITEPULSE_POSTGRES_URL", "postgres://localhost/sitepulse")
	os.Setenv("SITEPULSE_HOST", "127.0.0.1")
	os.Setenv("SITEPULSE_PORT", "3000")
	os.Setenv("SITEPULSE_READ_TIMEOUT", "30s")
	os.Setenv("SITEPULSE_REDIS_URL", "redis://localhost:6379")
	os.Setenv("SITEPULSE_REDIS_DB", "2")
	os.Setenv("SITEPULSE_TOKEN_CACHE_SIZE", "4096")
	os.Setenv("SITEPULSE_RATELIMIT_REQUESTS", "250")
	os.Setenv("SITEPULSE_AUDIT_RETENTION_DAYS", "90")
	os.Setenv("SITEPULSE_LOG_LEVEL", "debug")
	os.Setenv("SITEPULSE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %v, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("Port = %v, want 3000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.URL != "postgres://localhost/sitepulse" {
		t.Errorf("Database.URL = %v", cfg.Database.URL)
	}
	if cfg.Redis.URL != "redis://localhost:6379" {
		t.Errorf("Redis.URL = %v", cfg.Redis.URL)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %v, want 2", cfg.Redis.DB)
	}
	if cfg.Auth.TokenCacheSize != 4096 {
		t.Errorf("TokenCacheSize = %v, want 4096", cfg.Auth.TokenCacheSize)
	}
	if cfg.RateLimit.RequestsPerWindow != 250 {
		t.Errorf("RequestsPerWindow = %v, want 250", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("RetentionDays = %v, want 90", cfg.Audit.RetentionDays)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
}

// TestLoadConfigFile_YAML tests the YAML file layer
func TestLoadConfigFile_YAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sitepulse.yaml")
	content := `
server:
  port: "4000"
  health_port: "4001"
database:
  url: postgres://db.internal/sitepulse
  max_open_conns: 50
rate_limit:
  requests_per_window: 500
  window_duration: 30s
observability:
  log_level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if cfg.Server.Port != "4000" {
		t.Errorf("Port = %v, want 4000", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "4001" {
		t.Errorf("HealthPort = %v, want 4001", cfg.Server.HealthPort)
	}
	if cfg.Database.URL != "postgres://db.internal/sitepulse" {
		t.Errorf("Database.URL = %v", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("MaxOpenConns = %v, want 50", cfg.Database.MaxOpenConns)
	}
	if cfg.RateLimit.RequestsPerWindow != 500 {
		t.Errorf("RequestsPerWindow = %v, want 500", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.RateLimit.WindowDuration != 30*time.Second {
		t.Errorf("WindowDuration = %v, want 30s", cfg.RateLimit.WindowDuration)
	}
	if cfg.Observability.LogLevel != observability.WarnLevel {
		t.Errorf("LogLevel = %v, want warn", cfg.Observability.LogLevel)
	}
	// File did not touch the host; the default must survive.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %v, want default 0.0.0.0", cfg.Server.Host)
	}
}

// TestLoadConfigFile_EnvWinsOverFile tests layer precedence
func TestLoadConfigFile_EnvWinsOverFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "sitepulse.yaml")
	content := `
server:
  port: "4000"
database:
  url: postgres://from-file/sitepulse
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("SITEPULSE_PORT", "5000")
	os.Setenv("SITEPULSE_POSTGRES_URL", "postgres://from-env/sitepulse")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if cfg.Server.Port != "5000" {
		t.Errorf("Port = %v, want env value 5000", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://from-env/sitepulse" {
		t.Errorf("Database.URL = %v, want env value", cfg.Database.URL)
	}
}

// TestLoadConfigFile_Errors tests file-layer failure modes
func TestLoadConfigFile_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Error("LoadConfigFile() expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil {
			t.Error("LoadConfigFile() expected error for malformed yaml")
		}
	})
}

// TestConfigValidate tests the Config.Validate method
func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Database.URL = "postgres://localhost/sitepulse"
		return cfg
	}

	t.Run("valid config", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() unexpected error = %v", err)
		}
	})

	t.Run("missing server port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		err := cfg.Validate()
		if err == nil || err.Error() != "server port is required" {
			t.Errorf("Validate() error = %v, want 'server port is required'", err)
		}
	})

	t.Run("missing health port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.HealthPort = ""
		err := cfg.Validate()
		if err == nil || err.Error() != "health port is required" {
			t.Errorf("Validate() error = %v, want 'health port is required'", err)
		}
	})

	t.Run("same server and health port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.HealthPort = cfg.Server.Port
		err := cfg.Validate()
		if err == nil || err.Error() != "server port and health port must be different" {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("missing postgres url", func(t *testing.T) {
		cfg := valid()
		cfg.Database.URL = ""
		err := cfg.Validate()
		if err == nil || err.Error() != "postgres URL is required" {
			t.Errorf("Validate() error = %v, want 'postgres URL is required'", err)
		}
	})

	t.Run("idle exceeds open connections", func(t *testing.T) {
		cfg := valid()
		cfg.Database.MaxIdleConns = cfg.Database.MaxOpenConns + 1
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for idle > open")
		}
	})

	t.Run("rate limit enabled with zero window", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.WindowDuration = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for zero window")
		}
	})

	t.Run("rate limit disabled skips rate validation", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.WindowDuration = 0
		cfg.RateLimit.RequestsPerWindow = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error = %v", err)
		}
	})

	t.Run("non-positive audit retention", func(t *testing.T) {
		cfg := valid()
		cfg.Audit.RetentionDays = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for zero retention")
		}
	})

	t.Run("otel enabled without endpoint", func(t *testing.T) {
		cfg := valid()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		err := cfg.Validate()
		if err == nil || err.Error() != "OpenTelemetry endpoint is required when OTel is enabled" {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("otel enabled without service name", func(t *testing.T) {
		cfg := valid()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelServiceName = ""
		err := cfg.Validate()
		if err == nil || err.Error() != "OpenTelemetry service name is required when OTel is enabled" {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

// TestLoadConfig tests end-to-end loading from environment
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "valid config",
			env: map[string]string{
				"SITEPULSE_POSTGRES_URL": "postgres://localhost/sitepulse",
			},
			wantErr: false,
		},
		{
			name:    "missing postgres url",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "invalid config - same ports",
			env: map[string]string{
				"SITEPULSE_POSTGRES_URL": "postgres://localhost/sitepulse",
				"SITEPULSE_PORT":         "8080",
				"SITEPULSE_HEALTH_PORT":  "8080",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && cfg == nil {
				t.Error("LoadConfig() returned nil config without error")
			}
		})
	}
}
