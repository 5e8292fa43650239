// Package api exposes the SitePulse HTTP surface: project, team,
// membership, and invitation routes under /api/v1.
//
// Every route that targets a resource runs behind the capability gate
// middleware from pkg/access, which resolves the caller's effective role and
// maps denials to the uniform external taxonomy (401 unauthenticated, 404
// for both missing resources and missing grants, 403 naming only the
// operation, 503 for data-source failures). The two checks that depend on
// request bodies, team role changes and member removals, call the gate from
// the handler instead.
//
// Handlers audit denials, role changes, and data mutations through
// pkg/audit.
package api
