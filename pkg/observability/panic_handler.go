package observability

import (
	"runtime/debug"
)

// RecoverPanic logs a recovered panic and swallows it, keeping the process
// alive. Intended for deferred use at the top of janitor jobs and other
// background work, where one bad run must not take down the scheduler:
//
//	defer observability.RecoverPanic(logger, "janitor job audit_retention")
//
// The panic value and full stack land in the log at Error level. Request
// handlers should use httputil.RecoveryMiddleware instead, which also writes
// a 500 response.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
	}
}
