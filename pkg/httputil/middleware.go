package httputil

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
)

// RequestIDMiddleware tags each request with an id, honoring one supplied
// by the caller so ids survive proxy hops. The id is echoed in the
// response for support tickets.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into a 500. This is the
// last-resort path and runs before the structured logger is guaranteed
// to exist, so it writes to the standard logger.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				WriteInternalError(w, errors.New("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// MaxBytesMiddleware caps request body size. Requests to this API carry
// small JSON documents, so anything large is a mistake or abuse.
func MaxBytesMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
