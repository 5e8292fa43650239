package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sitepulse/sitepulse/pkg/access"
	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/httputil"
	"github.com/sitepulse/sitepulse/pkg/middleware"
	"github.com/sitepulse/sitepulse/pkg/observability"
	"github.com/sitepulse/sitepulse/pkg/projects"
	"github.com/sitepulse/sitepulse/pkg/teams"
)

// Server is the SitePulse API server. It owns the router and wires the
// middleware stack: metrics, auth, rate limiting, then the capability gate
// per route.
type Server struct {
	router *mux.Router
	logger *observability.Logger

	projectHandlers *ProjectHandlers
	teamHandlers    *TeamHandlers
}

// ServerConfig carries the server's collaborators. Gate, Projects, and Teams
// are required; the rest are optional and skipped when nil.
type ServerConfig struct {
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	OTelMetrics *observability.OTelMetrics
	Gate        *access.Gate
	Projects    projects.Service
	Teams       teams.Service
	Auditor     audit.Logger

	// AuthMiddleware produces the authenticated principal. Optional so
	// handler tests can inject their own context.
	AuthMiddleware *middleware.AuthMiddleware

	// RateLimit wraps the API subtree when set.
	RateLimit func(http.Handler) http.Handler

	// AuditStore enables the read-side audit query routes.
	AuditStore audit.Store
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if cfg.Auditor == nil {
		cfg.Auditor = audit.NewNoOpLogger()
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: cfg.Logger,
	}

	gateOpts := []access.GateMiddlewareOption{
		access.WithMetrics(cfg.Metrics),
		access.WithAuditLogger(cfg.Auditor),
	}
	if cfg.OTelMetrics != nil {
		gateOpts = append(gateOpts, access.WithOTelMetrics(cfg.OTelMetrics))
	}
	gateMW := access.NewGateMiddleware(cfg.Gate, gateOpts...)

	s.projectHandlers = NewProjectHandlers(cfg.Projects, cfg.Gate, cfg.Auditor)
	s.teamHandlers = NewTeamHandlers(cfg.Teams, cfg.Gate, cfg.Auditor)

	s.setupRoutes(cfg, gateMW)
	return s
}

func (s *Server) setupRoutes(cfg ServerConfig, gateMW *access.GateMiddleware) {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware)
	// Request bodies are small JSON documents; 1 MiB is generous.
	s.router.Use(httputil.MaxBytesMiddleware(1 << 20))

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if cfg.Metrics != nil {
		api.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	}
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.Handler)
	}
	api.Use(audit.NewMiddleware(cfg.Auditor, false).Handler)
	if cfg.RateLimit != nil {
		api.Use(cfg.RateLimit)
	}

	s.projectHandlers.RegisterRoutes(api, gateMW)
	s.teamHandlers.RegisterRoutes(api, gateMW)

	if cfg.AuditStore != nil {
		audit.NewHandlers(cfg.AuditStore).RegisterRoutes(api)
	}
}

// Router exposes the configured router for the HTTP server and tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP makes the server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
