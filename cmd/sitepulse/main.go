// Command sitepulse runs the SitePulse back-office API server.
//
// It wires together the Postgres-backed stores, the access gate, the
// project and team services, token authentication, Redis-backed rate
// limiting, audit logging, and the observability stack, then serves the
// HTTP API with graceful shutdown on SIGINT/SIGTERM. Health probes and
// Prometheus metrics are served on a separate port so the API listener
// can sit behind an authenticating proxy without exposing them.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitepulse/sitepulse/pkg/access"
	"github.com/sitepulse/sitepulse/pkg/api"
	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/auth"
	"github.com/sitepulse/sitepulse/pkg/config"
	"github.com/sitepulse/sitepulse/pkg/middleware"
	"github.com/sitepulse/sitepulse/pkg/observability"
	"github.com/sitepulse/sitepulse/pkg/projects"
	"github.com/sitepulse/sitepulse/pkg/teams"
)

func main() {
	configPath := flag.String("config", os.Getenv("SITEPULSE_CONFIG_FILE"), "path to YAML config file (optional, env vars apply on top)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("addr", cfg.Server.Host+":"+cfg.Server.Port).Info("starting sitepulse")

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}

	if err := access.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("access migrations failed")
		os.Exit(1)
	}
	if err := auth.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("auth migrations failed")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = openRedis(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("failed to connect to redis")
			os.Exit(1)
		}
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize tracing")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	var otelMetrics *observability.OTelMetrics
	if cfg.Observability.OTelEnabled {
		otelMetrics, err = observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Error("failed to initialize otel metrics")
			os.Exit(1)
		}
	}

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		logger.WithError(err).Error("failed to initialize audit logging")
		os.Exit(1)
	}
	auditor := audit.Logger(auditLogger)
	if cfg.Audit.FilePath != "" {
		fileLogger, ferr := audit.NewFileLogger(audit.FileLoggerConfig{
			BasePath: cfg.Audit.FilePath,
			Rotate:   true,
		})
		if ferr != nil {
			logger.WithError(ferr).Error("failed to open audit log file")
			os.Exit(1)
		}
		auditor = audit.NewMultiLogger(auditLogger, fileLogger)
	}

	store := access.NewSQLStore(db)
	resolver := access.NewResolver(store)
	gate := access.NewGate(resolver, access.WithOperatorStore(store))

	tokenManager := auth.NewTokenManager(db)
	authMW := middleware.NewAuthMiddleware(tokenManager, false)

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			rateLimit = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
		} else {
			// Single-instance fallback; limits are per process.
			rateLimit = middleware.NewRateLimitMiddleware().Handler
		}
	}

	server := api.NewServer(api.ServerConfig{
		Logger:         logger,
		Metrics:        metrics,
		OTelMetrics:    otelMetrics,
		Gate:           gate,
		Projects:       projects.NewPostgresService(db, resolver),
		Teams:          teams.NewPostgresService(db),
		Auditor:        auditor,
		AuthMiddleware: authMW,
		RateLimit:      rateLimit,
		AuditStore:     audit.NewDBStore(auditLogger),
	})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "sitepulse-api")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, db, redisClient, registry, logger)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return auditLogger.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return db.Close()
	})

	if otelMetrics != nil {
		statsCtx, stopStats := context.WithCancel(ctx)
		go reportDBStats(statsCtx, db, otelMetrics)
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			stopStats()
			return nil
		})
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("sitepulse stopped")
}

// reportDBStats periodically publishes connection-pool gauges.
func reportDBStats(ctx context.Context, db *sql.DB, metrics *observability.OTelMetrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.UpdateDBConnectionStats(ctx, stats.InUse, stats.Idle, stats.MaxOpenConnections)
		}
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	opts.PoolSize = cfg.Redis.PoolSize
	opts.MaxRetries = cfg.Redis.MaxRetries

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// startHealthServer serves liveness/readiness probes and, when enabled,
// the Prometheus metrics endpoint on the dedicated health port.
func startHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, logger *observability.Logger) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}

	server := &http.Server{
		Addr:        cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", server.Addr).Info("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()
	return server
}
