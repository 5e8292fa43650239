// Package config provides layered application configuration: built-in
// defaults, an optional YAML file, and SITEPULSE_* environment variables,
// in that order of precedence (environment wins).
//
// # Configuration Structure
//
// Server settings:
//
//	SITEPULSE_HOST="0.0.0.0"
//	SITEPULSE_PORT="8080"
//	SITEPULSE_HEALTH_PORT="9090"
//	SITEPULSE_READ_TIMEOUT="15s"
//	SITEPULSE_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	SITEPULSE_POSTGRES_URL="postgres://localhost/sitepulse"
//	SITEPULSE_POSTGRES_MAX_CONNS="25"
//	SITEPULSE_POSTGRES_IDLE_CONNS="5"
//
// Redis (distributed rate limiter):
//
//	SITEPULSE_REDIS_URL="redis://localhost:6379"
//	SITEPULSE_REDIS_POOL_SIZE="10"
//
// Audit settings:
//
//	SITEPULSE_AUDIT_RETENTION_DAYS="365"
//	SITEPULSE_AUDIT_ARCHIVE_PATH="/var/lib/sitepulse/audit-archive"
//
// Observability settings:
//
//	SITEPULSE_LOG_LEVEL="info"  # debug, info, warn, error
//	SITEPULSE_METRICS_ENABLED="true"
//	SITEPULSE_OTEL_ENABLED="true"
//	SITEPULSE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Live Reload
//
// When a config file is in use (SITEPULSE_CONFIG_FILE), a Watcher can reload
// operator-tunable settings without a restart:
//
//	w, err := config.NewWatcher(path, cfg, logger, func(next *config.Config) {
//		limiter.SetConfig(next.RateLimit)
//	})
//	defer w.Close()
//
// A file change that fails to parse or validate is rejected and the previous
// configuration stays in effect.
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - pkg/middleware: Uses rate limit configuration
package config
