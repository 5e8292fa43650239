// Package observability holds the service's logging, metrics, tracing,
// health, and shutdown plumbing.
//
// # Structured Logging
//
// Loggers emit JSON and chain fields without mutating the receiver:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("team_id", teamID).Info("invitation accepted")
//
// # Prometheus Metrics
//
// Metrics register against an explicit registry so tests can use their
// own:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthzDecisionsTotal.WithLabelValues("project:view", "allowed", "direct").Inc()
//
// # Health Checks
//
// The health checker reports Postgres as hard-down and Redis as a
// degradation, matching how the resolver and rate limiter depend on
// them:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(&observability.OTelConfig{
//		OTLPEndpoint: "otel-collector:4317",
//	})
//	defer observability.ShutdownOTel(ctx, providers)
//
// # Shutdown
//
// ShutdownManager drains the HTTP server and then runs teardown steps
// in registration order. Register dependents before the stores they
// write to.
package observability
