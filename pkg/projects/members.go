package projects

import (
	"context"
	"fmt"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// ListMembers lists the project's direct membership rows. Team members reach
// the project without a row here; only explicit per-project grants appear.
func (s *PostgresService) ListMembers(ctx context.Context, projectID int64) ([]*ProjectMember, error) {
	query := `
		SELECT id, project_id, user_id, role, granted_by, granted_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY granted_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	var members []*ProjectMember
	for rows.Next() {
		member := &ProjectMember{}
		if err := rows.Scan(
			&member.ID, &member.ProjectID, &member.UserID, &member.Role,
			&member.GrantedBy, &member.GrantedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// AddMember grants a user a direct role on the project. A direct grant
// overrides the user's team-derived role in both directions, so granting
// viewer to a team admin is a deliberate demotion on this project.
func (s *PostgresService) AddMember(ctx context.Context, projectID, userID int64, role access.Role, grantedBy *int64) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	query := `
		INSERT INTO project_members (project_id, user_id, role, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, projectID, userID, role, grantedBy)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
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

// UpdateMemberRole changes a direct grant's role.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, projectID, userID int64, role access.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	query := `UPDATE project_members SET role = $1 WHERE project_id = $2 AND user_id = $3`
	result, err := s.db.ExecContext(ctx, query, role, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to update project member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// RemoveMember removes a direct grant. The user may still reach the project
// through team membership or ownership afterwards.
func (s *PostgresService) RemoveMember(ctx context.Context, projectID, userID int64) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}
