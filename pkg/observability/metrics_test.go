package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	t.Run("creates and registers all metrics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		if metrics == nil {
			t.Fatal("NewMetrics returned nil")
		}

		// Verify HTTP metrics are initialized
		if metrics.HTTPRequestsTotal == nil {
			t.Error("HTTPRequestsTotal is nil")
		}
		if metrics.HTTPRequestDuration == nil {
			t.Error("HTTPRequestDuration is nil")
		}
		if metrics.HTTPRequestSize == nil {
			t.Error("HTTPRequestSize is nil")
		}
		if metrics.HTTPResponseSize == nil {
			t.Error("HTTPResponseSize is nil")
		}

		// Verify authorization metrics are initialized
		if metrics.AuthzDecisionsTotal == nil {
			t.Error("AuthzDecisionsTotal is nil")
		}
		if metrics.AuthzCheckDuration == nil {
			t.Error("AuthzCheckDuration is nil")
		}

		// Verify database metrics are initialized
		if metrics.DBConnectionsActive == nil {
			t.Error("DBConnectionsActive is nil")
		}
		if metrics.DBConnectionsIdle == nil {
			t.Error("DBConnectionsIdle is nil")
		}

		// Verify Redis metrics are initialized
		if metrics.RedisConnectionsActive == nil {
			t.Error("RedisConnectionsActive is nil")
		}
		if metrics.RedisCommandsTotal == nil {
			t.Error("RedisCommandsTotal is nil")
		}

		// Verify business metrics are initialized
		if metrics.ProjectsTotal == nil {
			t.Error("ProjectsTotal is nil")
		}
		if metrics.TeamsTotal == nil {
			t.Error("TeamsTotal is nil")
		}
		if metrics.ActiveUsersTotal == nil {
			t.Error("ActiveUsersTotal is nil")
		}
		if metrics.APITokensActive == nil {
			t.Error("APITokensActive is nil")
		}
	})

	t.Run("panics on duplicate registration", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		NewMetrics(registry)

		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic on duplicate registration")
			}
		}()
		NewMetrics(registry)
	})
}

func TestMetrics_HTTPMetrics(t *testing.T) {
	t.Run("increment HTTP request counter", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/test", "200").Inc()

		count := testutil.CollectAndCount(metrics.HTTPRequestsTotal)
		if count != 1 {
			t.Errorf("Expected 1 metric, got %d", count)
		}

		// Verify the value
		expected := `
# HELP sitepulse_http_requests_total Total number of HTTP requests
# TYPE sitepulse_http_requests_total counter
sitepulse_http_requests_total{method="GET",path="/api/test",status="200"} 1
`
		if err := testutil.CollectAndCompare(metrics.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
			t.Errorf("Unexpected metric value: %v", err)
		}
	})

	t.Run("observe HTTP request duration", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		metrics.HTTPRequestDuration.WithLabelValues("POST", "/api/create").Observe(0.5)
		metrics.HTTPRequestDuration.WithLabelValues("POST", "/api/create").Observe(1.5)

		count := testutil.CollectAndCount(metrics.HTTPRequestDuration)
		if count != 1 {
			t.Errorf("Expected 1 metric family, got %d", count)
		}
	})
}

func TestMetrics_AuthzMetrics(t *testing.T) {
	t.Run("count decisions by capability and outcome", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		metrics.AuthzDecisionsTotal.WithLabelValues("project:view", "allowed", "team_membership").Inc()
		metrics.AuthzDecisionsTotal.WithLabelValues("project:view", "allowed", "ownership").Inc()
		metrics.AuthzDecisionsTotal.WithLabelValues("project:edit", "denied", "").Inc()

		count := testutil.CollectAndCount(metrics.AuthzDecisionsTotal)
		if count != 3 {
			t.Errorf("Expected 3 label combinations, got %d", count)
		}

		expected := `
# HELP sitepulse_authz_decisions_total Total number of authorization decisions
# TYPE sitepulse_authz_decisions_total counter
sitepulse_authz_decisions_total{capability="project:edit",outcome="denied",source=""} 1
sitepulse_authz_decisions_total{capability="project:view",outcome="allowed",source="ownership"} 1
sitepulse_authz_decisions_total{capability="project:view",outcome="allowed",source="team_membership"} 1
`
		if err := testutil.CollectAndCompare(metrics.AuthzDecisionsTotal, strings.NewReader(expected)); err != nil {
			t.Errorf("Unexpected metric value: %v", err)
		}
	})

	t.Run("observe check duration", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		metrics.AuthzCheckDuration.WithLabelValues("project:view").Observe(0.002)
		metrics.AuthzCheckDuration.WithLabelValues("project:view").Observe(0.004)

		count := testutil.CollectAndCount(metrics.AuthzCheckDuration)
		if count != 1 {
			t.Errorf("Expected 1 metric family, got %d", count)
		}
	})
}

func TestMetrics_DatabaseMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.DBConnectionsActive.Set(5)
	metrics.DBConnectionsIdle.Set(3)

	if got := testutil.ToFloat64(metrics.DBConnectionsActive); got != 5 {
		t.Errorf("DBConnectionsActive = %v, want 5", got)
	}
	if got := testutil.ToFloat64(metrics.DBConnectionsIdle); got != 3 {
		t.Errorf("DBConnectionsIdle = %v, want 3", got)
	}
}

func TestMetrics_RedisMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.RedisCommandsTotal.WithLabelValues("INCR", "success").Inc()
	metrics.RedisCommandsTotal.WithLabelValues("INCR", "success").Inc()
	metrics.RedisCommandDuration.WithLabelValues("INCR").Observe(0.001)

	if got := testutil.ToFloat64(metrics.RedisCommandsTotal.WithLabelValues("INCR", "success")); got != 2 {
		t.Errorf("RedisCommandsTotal = %v, want 2", got)
	}
}

func TestMetrics_BusinessMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ProjectsTotal.Set(42)
	metrics.TeamsTotal.Set(7)
	metrics.ActiveUsersTotal.Set(100)
	metrics.APITokensActive.Set(25)

	if got := testutil.ToFloat64(metrics.ProjectsTotal); got != 42 {
		t.Errorf("ProjectsTotal = %v, want 42", got)
	}
	if got := testutil.ToFloat64(metrics.TeamsTotal); got != 7 {
		t.Errorf("TeamsTotal = %v, want 7", got)
	}
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures status code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)

		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode = %d, want 404", rw.statusCode)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("recorded code = %d, want 404", rec.Code)
		}
	})

	t.Run("counts bytes written", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

		rw.Write([]byte("hello"))
		rw.Write([]byte(" world"))

		if rw.bytesWritten != 11 {
			t.Errorf("bytesWritten = %d, want 11", rw.bytesWritten)
		}
	})
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	t.Run("records request metrics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":1}`))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"test"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/projects", "201")); got != 1 {
			t.Errorf("HTTPRequestsTotal = %v, want 1", got)
		}
	})

	t.Run("defaults status to 200 when WriteHeader is not called", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 1 {
			t.Errorf("HTTPRequestsTotal = %v, want 1", got)
		}
	})
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.ProjectsTotal.Set(3)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "sitepulse_projects_total 3") {
		t.Error("metrics output should contain sitepulse_projects_total")
	}
}
