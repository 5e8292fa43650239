// Package httputil holds the HTTP plumbing shared by the API handlers:
// JSON responses, request parsing, and generic middleware.
//
// # Responses
//
// Success:
//
//	httputil.WriteSuccess(w, project)
//	httputil.WriteCreated(w, project)
//	httputil.WriteNoContent(w)
//
// Errors all share the {"error": message} shape. The status helpers map
// directly onto the denial taxonomy the gate middleware uses:
//
//	httputil.WriteUnauthorized(w, "authentication required")
//	httputil.WriteForbidden(w, "owner role cannot be changed or removed")
//	httputil.WriteNotFoundError(w, "not found")
//	httputil.WriteServiceUnavailable(w, "authorization check failed, retry later")
//
// # Request Parsing
//
// JSON bodies:
//
//	var req projects.CreateProjectRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//
// Path and query parameters:
//
//	id, err := httputil.ParsePathInt64(r, "id")
//	limit := httputil.ParseQueryInt(r, "limit", 100)
//	format := httputil.ParseQueryString(r, "format", "json")
//
// # Middleware
//
// RequestIDMiddleware, RecoveryMiddleware, and MaxBytesMiddleware run
// on every route. The
// authentication and gate middleware live in pkg/middleware and
// pkg/access; this package stays domain-free.
package httputil
