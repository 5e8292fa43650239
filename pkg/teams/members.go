package teams

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// ListMembers retrieves all members of a team
func (s *PostgresService) ListMembers(ctx context.Context, teamID int64) ([]*TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role, invited_by, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*TeamMember
	for rows.Next() {
		member := &TeamMember{}
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role,
			&member.InvitedBy, &member.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// GetMember retrieves a specific member
func (s *PostgresService) GetMember(ctx context.Context, teamID, userID int64) (*TeamMember, error) {
	query := `
		SELECT id, team_id, user_id, role, invited_by, joined_at
		FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`
	member := &TeamMember{}
	err := s.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID, &member.TeamID, &member.UserID, &member.Role,
		&member.InvitedBy, &member.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// AddMember adds a user to a team. The owner role cannot be assigned this
// way; it exists only through CreateTeam.
func (s *PostgresService) AddMember(ctx context.Context, teamID, userID int64, role access.Role, invitedBy *int64) error {
	if role == access.RoleOwner {
		return ErrOwnerRowProtected
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role: %s", role)
	}

	query := `
		INSERT INTO team_members (team_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, teamID, userID, role, invitedBy)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberExists
	}

	return nil
}

// UpdateMemberRole changes a member's role. The owner row is never touched:
// the WHERE clause excludes it, and attempts to assign the owner role are
// rejected before the query. Authorization (who may change whose role) is
// enforced by the capability gate at the handler.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, teamID, userID int64, role access.Role) error {
	if role == access.RoleOwner {
		return ErrOwnerRowProtected
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role: %s", role)
	}

	query := `
		UPDATE team_members SET role = $1
		WHERE team_id = $2 AND user_id = $3 AND role <> $4
	`
	result, err := s.db.ExecContext(ctx, query, role, teamID, userID, access.RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a protected owner row from a missing membership.
		if _, err := s.GetMember(ctx, teamID, userID); err == nil {
			return ErrOwnerRowProtected
		}
		return ErrMemberNotFound
	}

	return nil
}

// RemoveMember removes a user from a team. The owner membership row cannot
// be removed.
func (s *PostgresService) RemoveMember(ctx context.Context, teamID, userID int64) error {
	query := `
		DELETE FROM team_members
		WHERE team_id = $1 AND user_id = $2 AND role <> $3
	`
	result, err := s.db.ExecContext(ctx, query, teamID, userID, access.RoleOwner)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := s.GetMember(ctx, teamID, userID); err == nil {
			return ErrOwnerRowProtected
		}
		return ErrMemberNotFound
	}

	return nil
}
