// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including token
// authentication, token scope checks, and rate limiting (per-user and
// distributed). Capability-based authorization lives in pkg/access; this
// package only establishes who the caller is.
//
// # Middleware Components
//
// AuthMiddleware: Token-based authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, false)
//	router.Use(authMW.Handler)
//	// Extracts Bearer token, validates, adds AuthContext to request
//
// RequireScope: Token scope enforcement
//
//	router.Use(middleware.RequireScope(auth.ScopeProjectWrite))
//
// RateLimitMiddleware: In-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting, shared across
// instances
//
//	router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-User: 1000 req/min, 50 burst
// Per-Operator: 5000 req/min, 100 burst
//
// Rate limiting fails open on Redis errors; authorization never does.
//
// # Related Packages
//
//   - pkg/auth: Token validation
//   - pkg/access: Effective roles and the capability gate
package middleware
