package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lib/pq"
)

const (
	// TokenPrefix identifies SitePulse tokens
	TokenPrefix = "sp_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32

	// tokenCacheSize bounds the validated-token cache. Only token identity is
	// cached here; effective roles are resolved fresh on every check.
	tokenCacheSize = 1024
	// tokenCacheTTL bounds how long a revocation elsewhere can go unnoticed
	// by this process.
	tokenCacheTTL = time.Minute
)

// ErrInvalidToken is returned for tokens that are malformed, unknown,
// revoked, or expired. Callers must not distinguish these cases externally.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token
// Format: sp_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	// SHA256 hash is what gets stored; the plaintext is returned once.
	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after the prefix for identification in listings.
	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// ExtractPrefix extracts the prefix from a token for display
func (tg *TokenGenerator) ExtractPrefix(token string) string {
	if !strings.HasPrefix(token, TokenPrefix) {
		return ""
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) >= 8 {
		return TokenPrefix + encodedPart[:8]
	}

	return token
}

type cachedToken struct {
	token *APIToken
	user  *User
}

// TokenManager manages API token lifecycle. Validated tokens are cached with
// a short TTL to keep the per-request cost down; revoking through this
// manager purges the local entry immediately.
type TokenManager struct {
	db        *sql.DB
	generator *TokenGenerator
	cache     *lru.LRU[string, *cachedToken]
}

// NewTokenManager creates a new token manager over the database.
func NewTokenManager(db *sql.DB) *TokenManager {
	return &TokenManager{
		db:        db,
		generator: NewTokenGenerator(),
		cache:     lru.NewLRU[string, *cachedToken](tokenCacheSize, nil, tokenCacheTTL),
	}
}

// CreateToken creates a new API token. The plaintext token is returned once
// and never stored.
func (tm *TokenManager) CreateToken(ctx context.Context, userID int64, name, description string, scopes []Scope, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := tm.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		Description: description,
		Scopes:      scopes,
		ExpiresAt:   expiresAt,
	}

	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, description, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err = tm.db.QueryRowContext(ctx, query,
		userID, tokenHash, tokenPrefix, name, description,
		pq.Array(scopeStrings(scopes)), expiresAt,
	).Scan(&apiToken.ID, &apiToken.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	return apiToken, token, nil
}

// ValidateToken validates a token and returns the authenticated context.
// Unknown, revoked, and expired tokens all present as ErrInvalidToken.
func (tm *TokenManager) ValidateToken(ctx context.Context, token string) (*AuthContext, error) {
	if err := tm.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	tokenHash := tm.generator.HashToken(token)

	entry, ok := tm.cache.Get(tokenHash)
	if !ok {
		var err error
		entry, err = tm.lookupToken(ctx, tokenHash)
		if err != nil {
			return nil, err
		}
		tm.cache.Add(tokenHash, entry)
	}

	// Revocation and expiry are re-checked on every use, cached or not.
	if entry.token.Revoked() || entry.token.Expired(time.Now()) || !entry.user.IsActive {
		tm.cache.Remove(tokenHash)
		return nil, ErrInvalidToken
	}

	// Best effort; a failed timestamp update must not fail authentication.
	_, _ = tm.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = NOW() WHERE id = $1`, entry.token.ID)

	return &AuthContext{
		User:   entry.user,
		Token:  entry.token,
		Scopes: entry.token.Scopes,
	}, nil
}

func (tm *TokenManager) lookupToken(ctx context.Context, tokenHash string) (*cachedToken, error) {
	query := `
		SELECT t.id, t.user_id, t.token_prefix, t.name, t.scopes, t.expires_at,
		       t.created_at, t.revoked_at,
		       u.username, u.email, u.is_operator, u.is_active
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`

	apiToken := &APIToken{TokenHash: tokenHash}
	user := &User{}
	var scopes pq.StringArray
	err := tm.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&apiToken.ID, &apiToken.UserID, &apiToken.TokenPrefix, &apiToken.Name,
		&scopes, &apiToken.ExpiresAt, &apiToken.CreatedAt, &apiToken.RevokedAt,
		&user.Username, &user.Email, &user.IsOperator, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	user.ID = apiToken.UserID
	apiToken.Scopes = scopesFromStrings(scopes)
	return &cachedToken{token: apiToken, user: user}, nil
}

// RevokeToken revokes a token and purges it from the local cache.
func (tm *TokenManager) RevokeToken(ctx context.Context, tokenID, revokedBy int64, reason string) error {
	query := `
		UPDATE api_tokens
		SET revoked_at = NOW(), revoked_by = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
		RETURNING token_hash
	`
	var tokenHash string
	err := tm.db.QueryRowContext(ctx, query, tokenID, revokedBy, reason).Scan(&tokenHash)
	if err == sql.ErrNoRows {
		return fmt.Errorf("token %d not found or already revoked", tokenID)
	}
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	tm.cache.Remove(tokenHash)
	return nil
}

// ListUserTokens lists all tokens for a user, most recent first.
func (tm *TokenManager) ListUserTokens(ctx context.Context, userID int64) ([]*APIToken, error) {
	query := `
		SELECT id, user_id, token_prefix, name, description, scopes,
		       expires_at, last_used_at, created_at, revoked_at
		FROM api_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := tm.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		t := &APIToken{}
		var scopes pq.StringArray
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TokenPrefix, &t.Name, &t.Description, &scopes,
			&t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt, &t.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		t.Scopes = scopesFromStrings(scopes)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// CleanupExpiredTokens deletes tokens past their expiry. Run periodically by
// the janitor.
func (tm *TokenManager) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	result, err := tm.db.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired tokens: %w", err)
	}
	return result.RowsAffected()
}

func scopeStrings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}

func scopesFromStrings(values []string) []Scope {
	out := make([]Scope, len(values))
	for i, v := range values {
		out[i] = Scope(v)
	}
	return out
}
