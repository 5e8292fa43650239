package access

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/contextkeys"
	"github.com/sitepulse/sitepulse/pkg/httputil"
	"github.com/sitepulse/sitepulse/pkg/middleware"
	"github.com/sitepulse/sitepulse/pkg/observability"
)

// GateMiddleware wraps HTTP handlers with capability checks. Route variables
// carry the target project or team id; the authenticated principal comes from
// the auth middleware.
type GateMiddleware struct {
	gate    *Gate
	metrics *observability.Metrics
	otel    *observability.OTelMetrics
	auditor audit.Logger
}

// GateMiddlewareOption configures a GateMiddleware.
type GateMiddlewareOption func(*GateMiddleware)

// WithMetrics records authorization decision metrics.
func WithMetrics(m *observability.Metrics) GateMiddlewareOption {
	return func(gm *GateMiddleware) { gm.metrics = m }
}

// WithOTelMetrics additionally records decisions to OpenTelemetry
// instruments alongside the Prometheus counters.
func WithOTelMetrics(m *observability.OTelMetrics) GateMiddlewareOption {
	return func(gm *GateMiddleware) { gm.otel = m }
}

// WithAuditLogger records authorization outcomes to the audit trail.
func WithAuditLogger(logger audit.Logger) GateMiddlewareOption {
	return func(gm *GateMiddleware) { gm.auditor = logger }
}

// NewGateMiddleware creates middleware over the capability gate.
func NewGateMiddleware(gate *Gate, opts ...GateMiddlewareOption) *GateMiddleware {
	gm := &GateMiddleware{gate: gate}
	for _, opt := range opts {
		opt(gm)
	}
	return gm
}

// RequireProjectCapability gates a project route on the capability, reading
// the target project id from the {id} route variable. On allow, the decision
// is attached to the request context for handlers and audit.
func (gm *GateMiddleware) RequireProjectCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := principalID(r)
			projectID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid project id")
				return
			}

			start := time.Now()
			decision, err := gm.gate.AuthorizeProject(r.Context(), userID, projectID, capability)
			gm.observe(r.Context(), capability, decision, err, time.Since(start))
			if err != nil {
				gm.deny(w, r, capability, audit.ResourceTypeProject, err)
				return
			}

			ctx := contextkeys.WithDecision(r.Context(), decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTeamCapability gates a team route on the capability, reading the
// target team id from the {id} route variable.
func (gm *GateMiddleware) RequireTeamCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := principalID(r)
			teamID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid team id")
				return
			}

			start := time.Now()
			decision, err := gm.gate.AuthorizeTeam(r.Context(), userID, teamID, capability)
			gm.observe(r.Context(), capability, decision, err, time.Since(start))
			if err != nil {
				gm.deny(w, r, capability, audit.ResourceTypeTeam, err)
				return
			}

			ctx := contextkeys.WithDecision(r.Context(), decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deny maps a gate denial to the external response. Missing resources and
// missing grants present identically; insufficient-role responses name the
// operation but not the required level; data-source failures surface as
// retryable server errors.
func (gm *GateMiddleware) deny(w http.ResponseWriter, r *http.Request, capability Capability, resourceType audit.ResourceType, err error) {
	var insufficient *InsufficientRoleError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "authentication required")
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, ErrOwnerRoleImmutable):
		httputil.WriteForbidden(w, err.Error())
	case errors.As(err, &insufficient):
		httputil.WriteForbidden(w, insufficient.Error())
	default:
		httputil.WriteServiceUnavailable(w, "authorization check failed, retry later")
	}

	if gm.auditor != nil && IsDenial(err) {
		userID := principalID(r)
		var actor *int64
		if userID != 0 {
			actor = &userID
		}
		gm.auditor.LogAuthorization(r.Context(), audit.EventTypeAuthzAccessDenied, actor,
			resourceType, mux.Vars(r)["id"], audit.EventStatusDenied,
			string(capability))
	}
}

// observe records decision metrics. Outcomes: allowed, denied, error.
func (gm *GateMiddleware) observe(ctx context.Context, capability Capability, decision *Decision, err error, elapsed time.Duration) {
	outcome := "allowed"
	source := ""
	switch {
	case err == nil:
		source = string(decision.Role.Source)
	case IsDenial(err):
		outcome = "denied"
	default:
		outcome = "error"
	}
	if gm.metrics != nil {
		gm.metrics.AuthzDecisionsTotal.WithLabelValues(string(capability), outcome, source).Inc()
		gm.metrics.AuthzCheckDuration.WithLabelValues(string(capability)).Observe(elapsed.Seconds())
	}
	if gm.otel != nil {
		gm.otel.RecordAuthzDecision(ctx, string(capability), outcome, source, elapsed)
		if source != "" {
			gm.otel.RecordRoleResolution(ctx, source)
		}
	}
}

// principalID extracts the authenticated user id, or 0 when the request is
// unauthenticated.
func principalID(r *http.Request) int64 {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		return 0
	}
	return authCtx.User.ID
}

// DecisionFromRequest returns the gate decision attached by the middleware,
// or nil when the route was not gated.
func DecisionFromRequest(r *http.Request) *Decision {
	decision, _ := r.Context().Value(contextkeys.DecisionKey).(*Decision)
	return decision
}
