package projects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// accessResolver is the slice of the resolver ListProjects needs.
type accessResolver interface {
	AccessibleProjectIDs(ctx context.Context, userID int64) (access.ProjectIDSet, error)
}

// PostgresService implements Service backed by PostgreSQL. Listing consults
// the resolver for the caller's accessible set before touching project rows.
type PostgresService struct {
	db       *sql.DB
	resolver accessResolver
}

// NewPostgresService creates a project service.
func NewPostgresService(db *sql.DB, resolver accessResolver) *PostgresService {
	return &PostgresService{db: db, resolver: resolver}
}

// CreateProject creates a project with the caller as owner. The owner needs
// no membership row; ownership is read off the project row itself.
func (s *PostgresService) CreateProject(ctx context.Context, ownerID int64, req *CreateProjectRequest) (*Project, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, req.Kind)
	}

	project := &Project{
		Name:    req.Name,
		Kind:    req.Kind,
		OwnerID: ownerID,
		TeamID:  req.TeamID,
	}

	query := `
		INSERT INTO projects (name, kind, owner_id, team_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, project.Name, project.Kind, project.OwnerID, project.TeamID).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProject retrieves a project by id.
func (s *PostgresService) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := `
		SELECT id, name, kind, owner_id, team_id, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	project := &Project{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Name, &project.Kind, &project.OwnerID,
		&project.TeamID, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects returns every project the user can reach through ownership,
// direct membership, or team membership. The accessible set is computed
// first and applied as an inclusion predicate, so the row query never
// re-derives authorization.
func (s *PostgresService) ListProjects(ctx context.Context, userID int64) ([]*Project, error) {
	set, err := s.resolver.AccessibleProjectIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute accessible projects: %w", err)
	}
	if len(set) == 0 {
		return []*Project{}, nil
	}

	query := `
		SELECT id, name, kind, owner_id, team_id, created_at, updated_at
		FROM projects
		WHERE id = ANY($1)
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(set.IDs()))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.ID, &project.Name, &project.Kind, &project.OwnerID,
			&project.TeamID, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// UpdateProject applies the non-nil fields. Setting OwnerID transfers
// ownership; the previous owner keeps access only through memberships.
func (s *PostgresService) UpdateProject(ctx context.Context, id int64, updates *UpdateProjectRequest) error {
	setClauses := []string{"updated_at = NOW()"}
	var args []interface{}
	argIdx := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *updates.Name)
		argIdx++
	}
	if updates.TeamID != nil {
		setClauses = append(setClauses, fmt.Sprintf("team_id = $%d", argIdx))
		args = append(args, *updates.TeamID)
		argIdx++
	}
	if updates.OwnerID != nil {
		setClauses = append(setClauses, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, *updates.OwnerID)
		argIdx++
	}

	if len(args) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argIdx)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// DeleteProject deletes a project. Membership rows cascade in the schema.
func (s *PostgresService) DeleteProject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}
