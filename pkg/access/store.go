package access

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// SQLStore implements Store and OperatorStore over PostgreSQL. Every method
// is a single independent point lookup; the store performs no writes and
// takes no locks.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQL-backed membership store.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// GetProject fetches the minimal project row by id.
func (s *SQLStore) GetProject(ctx context.Context, projectID int64) (*ProjectRecord, error) {
	query := `SELECT id, owner_id, team_id FROM projects WHERE id = $1`

	var record ProjectRecord
	var teamID sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(&record.ID, &record.OwnerID, &teamID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if teamID.Valid {
		id := teamID.Int64
		record.TeamID = &id
	}
	return &record, nil
}

// GetProjectRole returns the direct project-membership role, or nil when no
// row exists.
func (s *SQLStore) GetProjectRole(ctx context.Context, projectID, userID int64) (*Role, error) {
	query := `SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`
	return s.queryRole(ctx, query, projectID, userID)
}

// GetTeamRole returns the team-membership role, or nil when no row exists.
func (s *SQLStore) GetTeamRole(ctx context.Context, teamID, userID int64) (*Role, error) {
	query := `SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2`
	return s.queryRole(ctx, query, teamID, userID)
}

func (s *SQLStore) queryRole(ctx context.Context, query string, args ...interface{}) (*Role, error) {
	var role Role
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership role: %w", err)
	}
	return &role, nil
}

// OwnedProjectIDs returns all project ids owned by the user.
func (s *SQLStore) OwnedProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT id FROM projects WHERE owner_id = $1`
	return s.queryIDs(ctx, query, userID)
}

// MemberProjectIDs returns all project ids with a direct membership row for
// the user.
func (s *SQLStore) MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT project_id FROM project_members WHERE user_id = $1`
	return s.queryIDs(ctx, query, userID)
}

// MemberTeamIDs returns all team ids the user holds any membership in.
func (s *SQLStore) MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT team_id FROM team_members WHERE user_id = $1`
	return s.queryIDs(ctx, query, userID)
}

// TeamProjectIDs returns all project ids associated with any of the teams.
func (s *SQLStore) TeamProjectIDs(ctx context.Context, teamIDs []int64) ([]int64, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM projects WHERE team_id = ANY($1)`
	return s.queryIDs(ctx, query, pq.Array(teamIDs))
}

// IsPlatformOperator reports whether the user carries the cross-tenant
// operator flag. Unknown users are not operators.
func (s *SQLStore) IsPlatformOperator(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT is_operator FROM users WHERE id = $1`

	var operator bool
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&operator)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check operator flag: %w", err)
	}
	return operator, nil
}

func (s *SQLStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query project ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
