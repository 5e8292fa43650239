package teams

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// invitationTTL is how long a pending invitation stays redeemable.
const invitationTTL = 7 * 24 * time.Hour

// CreateInvitation creates an invitation with a fresh uuid token. Re-inviting
// the same email replaces the pending token and restarts the expiry clock.
// Invitations never carry the owner role.
func (s *PostgresService) CreateInvitation(ctx context.Context, invitation *TeamInvitation) error {
	if invitation.Role == access.RoleOwner {
		return ErrOwnerRowProtected
	}
	if !invitation.Role.Valid() {
		return fmt.Errorf("unknown role: %s", invitation.Role)
	}

	invitation.Token = uuid.NewString()
	if invitation.InvitedAt.IsZero() {
		invitation.InvitedAt = time.Now().UTC()
	}
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = invitation.InvitedAt.Add(invitationTTL)
	}

	query := `
		INSERT INTO team_invitations (team_id, email, role, token, invited_by, invited_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id, email) DO UPDATE
		SET role = EXCLUDED.role, token = EXCLUDED.token,
		    invited_at = EXCLUDED.invited_at, expires_at = EXCLUDED.expires_at
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, invitation.TeamID, invitation.Email, invitation.Role,
		invitation.Token, invitation.InvitedBy, invitation.InvitedAt, invitation.ExpiresAt).
		Scan(&invitation.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetInvitation retrieves an invitation by token
func (s *PostgresService) GetInvitation(ctx context.Context, token string) (*TeamInvitation, error) {
	query := `
		SELECT id, team_id, email, role, token, invited_by, invited_at, expires_at, accepted_at, accepted_by
		FROM team_invitations
		WHERE token = $1
	`
	invitation := &TeamInvitation{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&invitation.ID, &invitation.TeamID, &invitation.Email, &invitation.Role,
		&invitation.Token, &invitation.InvitedBy, &invitation.InvitedAt, &invitation.ExpiresAt,
		&invitation.AcceptedAt, &invitation.AcceptedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return invitation, nil
}

// ListInvitations lists pending invitations for a team
func (s *PostgresService) ListInvitations(ctx context.Context, teamID int64) ([]*TeamInvitation, error) {
	query := `
		SELECT id, team_id, email, role, token, invited_by, invited_at, expires_at, accepted_at, accepted_by
		FROM team_invitations
		WHERE team_id = $1 AND accepted_at IS NULL
		ORDER BY invited_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*TeamInvitation
	for rows.Next() {
		invitation := &TeamInvitation{}
		if err := rows.Scan(
			&invitation.ID, &invitation.TeamID, &invitation.Email, &invitation.Role,
			&invitation.Token, &invitation.InvitedBy, &invitation.InvitedAt, &invitation.ExpiresAt,
			&invitation.AcceptedAt, &invitation.AcceptedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, invitation)
	}

	return invitations, rows.Err()
}

// AcceptInvitation redeems a token and adds the accepting user to the team
// in one transaction. The row is locked so a token can be redeemed once.
func (s *PostgresService) AcceptInvitation(ctx context.Context, token string, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, team_id, role, expires_at, accepted_at
		FROM team_invitations
		WHERE token = $1
		FOR UPDATE
	`
	var id, teamID int64
	var role access.Role
	var expiresAt time.Time
	var acceptedAt sql.NullTime

	err = tx.QueryRowContext(ctx, query, token).Scan(&id, &teamID, &role, &expiresAt, &acceptedAt)
	if err == sql.ErrNoRows {
		return ErrInvitationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}

	if acceptedAt.Valid {
		return ErrInvitationAccepted
	}
	if time.Now().After(expiresAt) {
		return ErrInvitationExpired
	}

	query = `
		INSERT INTO team_members (team_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, NULL)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, teamID, userID, role); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	query = `UPDATE team_invitations SET accepted_at = NOW(), accepted_by = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, userID, id); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}

	return tx.Commit()
}

// RevokeInvitation revokes a pending invitation
func (s *PostgresService) RevokeInvitation(ctx context.Context, id int64) error {
	query := `DELETE FROM team_invitations WHERE id = $1 AND accepted_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvitationNotFound
	}

	return nil
}

// CleanupExpiredInvitations removes expired pending invitations and reports
// how many were deleted. Run periodically by the janitor.
func (s *PostgresService) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	query := `DELETE FROM team_invitations WHERE expires_at < NOW() AND accepted_at IS NULL`
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	return result.RowsAffected()
}
