package auth

import "time"

// User represents a user account
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FullName    string     `json:"full_name,omitempty"`
	IsOperator  bool       `json:"is_operator"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Scope represents API token scopes. Scopes bound what a token may do on
// behalf of its user; the capability gate then decides what the user may do
// on the target resource. Both must pass.
type Scope string

const (
	ScopeProjectRead  Scope = "project:read"
	ScopeProjectWrite Scope = "project:write"
	ScopeTeamRead     Scope = "team:read"
	ScopeTeamWrite    Scope = "team:write"
	ScopeTokenCreate  Scope = "token:create"
	ScopeTokenRevoke  Scope = "token:revoke"
	ScopeAuditRead    Scope = "audit:read"
	ScopeAll          Scope = "*" // All scopes
)

// APIToken represents an API token
type APIToken struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	TokenHash    string     `json:"-"` // Never expose hash
	TokenPrefix  string     `json:"token_prefix"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Scopes       []Scope    `json:"scopes"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedBy    *int64     `json:"revoked_by,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
}

// Expired reports whether the token is past its expiry, if it has one.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Revoked reports whether the token has been revoked.
func (t *APIToken) Revoked() bool {
	return t.RevokedAt != nil
}

// AuthContext holds authenticated user information
type AuthContext struct {
	User   *User
	Token  *APIToken
	Scopes []Scope
}

// HasScope checks if the context has a specific scope
func (ac *AuthContext) HasScope(scope Scope) bool {
	for _, s := range ac.Scopes {
		if s == ScopeAll {
			return true
		}
		if s == scope {
			return true
		}
	}
	return false
}
