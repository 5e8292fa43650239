package teams

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateTeam creates a team and its owner membership row in one transaction.
// A team is never visible without its owner membership.
func (s *PostgresService) CreateTeam(ctx context.Context, team *Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO teams (name, display_name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, team.Name, team.DisplayName, team.OwnerID).
		Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	query = `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, query, team.ID, team.OwnerID, access.RoleOwner); err != nil {
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	return tx.Commit()
}

// GetTeam retrieves a team by ID
func (s *PostgresService) GetTeam(ctx context.Context, id int64) (*Team, error) {
	query := `
		SELECT id, name, display_name, owner_id, created_at, updated_at
		FROM teams
		WHERE id = $1
	`
	team := &Team{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.DisplayName, &team.OwnerID,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// ListTeams lists the teams a user is a member of
func (s *PostgresService) ListTeams(ctx context.Context, userID int64) ([]*Team, error) {
	query := `
		SELECT t.id, t.name, t.display_name, t.owner_id, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members tm ON t.id = tm.team_id
		WHERE tm.user_id = $1
		ORDER BY t.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(
			&team.ID, &team.Name, &team.DisplayName, &team.OwnerID,
			&team.CreatedAt, &team.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// UpdateTeam updates a team's mutable fields
func (s *PostgresService) UpdateTeam(ctx context.Context, id int64, updates *UpdateTeamRequest) error {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argPos := 1

	if updates.DisplayName != nil {
		setClauses = append(setClauses, fmt.Sprintf("display_name = $%d", argPos))
		args = append(args, *updates.DisplayName)
		argPos++
	}

	if len(args) == 0 {
		return nil // Nothing to update
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE teams SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}

	return nil
}

// DeleteTeam deletes a team. Membership rows, invitations, and project team
// associations are handled by the schema's ON DELETE actions.
func (s *PostgresService) DeleteTeam(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTeamNotFound
	}

	return nil
}
