// Package auth provides user identity and API token management for SitePulse.
//
// # Overview
//
// This package implements the authentication layer: user accounts, API token
// generation with cryptographic security, and scope-based token permissions.
// Authentication answers who the caller is; what the caller may do on a
// project or team is decided separately by pkg/access.
//
// # API Tokens
//
// Tokens are random 256-bit values, stored only as SHA256 hashes:
//
//	manager := auth.NewTokenManager(db)
//	apiToken, plaintext, err := manager.CreateToken(ctx, user.ID,
//		"CI Pipeline", "deploys the storefront",
//		[]auth.Scope{auth.ScopeProjectRead, auth.ScopeProjectWrite},
//		&expiresAt)
//	// plaintext format: sp_[base64url(32 random bytes)]; shown once, never stored
//
// Validation returns the request's AuthContext:
//
//	authCtx, err := manager.ValidateToken(ctx, plaintext)
//	if err != nil {
//		// ErrInvalidToken covers unknown, revoked, and expired uniformly
//	}
//
// Validated tokens are cached briefly (pure identity, never roles); revoking
// through the manager purges the local cache entry.
//
// # Scopes
//
// Scopes bound what a token may do on behalf of its user:
//
//	ScopeProjectRead  - Read project data
//	ScopeProjectWrite - Create and modify projects
//	ScopeTeamRead     - Read team membership
//	ScopeTeamWrite    - Manage teams
//	ScopeTokenCreate  - Create API tokens
//	ScopeTokenRevoke  - Revoke API tokens
//	ScopeAuditRead    - Read the audit trail
//	ScopeAll          - Full access
//
// A scoped token never grants more than the user's own effective role; both
// the scope check and the capability gate must pass.
//
// # Lifecycle
//
// Revoke a token:
//
//	err := manager.RevokeToken(ctx, tokenID, actorID, "compromised")
//
// List a user's tokens:
//
//	tokens, err := manager.ListUserTokens(ctx, userID)
//
// Cleanup expired tokens (run by the janitor):
//
//	deleted, err := manager.CleanupExpiredTokens(ctx)
//
// # Related Packages
//
//   - pkg/access: effective role resolution and the capability gate
//   - pkg/audit: security audit logging
//   - pkg/middleware: HTTP authentication middleware
package auth
