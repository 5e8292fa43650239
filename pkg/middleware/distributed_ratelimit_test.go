package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/sitepulse/sitepulse/pkg/auth"
)

// setupDistributedLimiterTest creates a miniredis instance and returns the client and cleanup function
func setupDistributedLimiterTest(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	client, _, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:1")
		if err != nil {
			t.Fatalf("Allow() request %d error = %v", i+1, err)
		}
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "user:1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("request over the limit should be denied")
	}

	// A different key has its own budget
	allowed, err = limiter.Allow(ctx, "user:2")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("a different key should not share the exhausted budget")
	}
}

func TestDistributedRateLimiter_WindowReset(t *testing.T) {
	client, mr, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "user:1"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "user:1"); allowed {
		t.Fatal("second request should be denied")
	}

	// Advance past the window; the key expires and the budget refills
	mr.FastForward(2 * time.Minute)

	if allowed, _ := limiter.Allow(ctx, "user:1"); !allowed {
		t.Error("request after window reset should be allowed")
	}
}

func TestDistributedRateLimiter_Remaining(t *testing.T) {
	client, _, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "user:1")
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 5 {
		t.Errorf("fresh key remaining = %d, want 5", remaining)
	}

	limiter.Allow(ctx, "user:1")
	limiter.Allow(ctx, "user:1")

	remaining, err = limiter.Remaining(ctx, "user:1")
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}
}

func TestDistributedRateLimiter_Reset(t *testing.T) {
	client, _, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	limiter.Allow(ctx, "user:1")
	if allowed, _ := limiter.Allow(ctx, "user:1"); allowed {
		t.Fatal("should be rate limited before reset")
	}

	if err := limiter.Reset(ctx, "user:1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if allowed, _ := limiter.Allow(ctx, "user:1"); !allowed {
		t.Error("request after reset should be allowed")
	}
}

func TestDistributedRateLimitMiddleware_Handler(t *testing.T) {
	client, _, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	m := NewDistributedRateLimitMiddleware(client)
	m.anonymousLimiter = NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "ratelimit:anon")

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Error("X-RateLimit-Remaining header should be set")
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestDistributedRateLimitMiddleware_PerUserKeys(t *testing.T) {
	client, _, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	m := NewDistributedRateLimitMiddleware(client)
	m.userLimiter = NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "ratelimit:user")

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(userID int64) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req = setAuthContextForTest(req, &auth.AuthContext{
			User: &auth.User{ID: userID},
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := request(1); code != http.StatusOK {
		t.Fatalf("user 1 first request: expected 200, got %d", code)
	}
	if code := request(1); code != http.StatusTooManyRequests {
		t.Errorf("user 1 second request: expected 429, got %d", code)
	}
	// user 2 is unaffected by user 1's budget
	if code := request(2); code != http.StatusOK {
		t.Errorf("user 2 first request: expected 200, got %d", code)
	}
}

func TestDistributedRateLimitMiddleware_FailOpen(t *testing.T) {
	client, mr, cleanup := setupDistributedLimiterTest(t)
	defer cleanup()

	m := NewDistributedRateLimitMiddleware(client)

	handlerCalled := false
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	// Kill Redis; rate limiting fails open and the request proceeds
	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("handler should be called when Redis is down (fail open)")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
