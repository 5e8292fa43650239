package projects

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// stubResolver returns a fixed accessible set.
type stubResolver struct {
	set access.ProjectIDSet
	err error
}

func (s *stubResolver) AccessibleProjectIDs(ctx context.Context, userID int64) (access.ProjectIDSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}

func newMockService(t *testing.T, resolver accessResolver) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresService(db, resolver), mock, db
}

func TestCreateProject(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery(`INSERT INTO projects`).
			WithArgs("storefront", KindStorefrontSync, int64(7), nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

		project, err := service.CreateProject(ctx, 7, &CreateProjectRequest{
			Name: "storefront",
			Kind: KindStorefrontSync,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), project.ID)
		assert.Equal(t, int64(7), project.OwnerID)
		assert.Nil(t, project.TeamID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with team association", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		now := time.Now()
		teamID := int64(10)
		mock.ExpectQuery(`INSERT INTO projects`).
			WithArgs("audit", KindSEOAudit, int64(7), &teamID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(2, now, now))

		project, err := service.CreateProject(ctx, 7, &CreateProjectRequest{
			Name:   "audit",
			Kind:   KindSEOAudit,
			TeamID: &teamID,
		})
		require.NoError(t, err)
		require.NotNil(t, project.TeamID)
		assert.Equal(t, int64(10), *project.TeamID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		_, err := service.CreateProject(ctx, 7, &CreateProjectRequest{Name: "x", Kind: Kind("billing")})
		assert.ErrorIs(t, err, ErrUnknownKind)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetProject(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "name", "kind", "owner_id", "team_id", "created_at", "updated_at"}).
			AddRow(1, "storefront", KindStorefrontSync, 7, nil, now, now)

		mock.ExpectQuery(`FROM projects\s+WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(rows)

		project, err := service.GetProject(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "storefront", project.Name)
		assert.Equal(t, KindStorefrontSync, project.Kind)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		mock.ExpectQuery(`FROM projects\s+WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := service.GetProject(ctx, 99)
		assert.ErrorIs(t, err, ErrProjectNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListProjects(t *testing.T) {
	ctx := context.Background()

	t.Run("filters rows by the accessible set", func(t *testing.T) {
		resolver := &stubResolver{set: access.ProjectIDSet{1: {}, 3: {}}}
		service, mock, db := newMockService(t, resolver)
		defer db.Close()

		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "name", "kind", "owner_id", "team_id", "created_at", "updated_at"}).
			AddRow(3, "qr", KindQRAnalytics, 9, nil, now, now).
			AddRow(1, "storefront", KindStorefrontSync, 7, nil, now.Add(-time.Hour), now)

		mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).
			WithArgs(pq.Array([]int64{1, 3})).
			WillReturnRows(rows)

		projects, err := service.ListProjects(ctx, 7)
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, int64(3), projects[0].ID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty accessible set skips the query", func(t *testing.T) {
		resolver := &stubResolver{set: access.ProjectIDSet{}}
		service, mock, db := newMockService(t, resolver)
		defer db.Close()

		projects, err := service.ListProjects(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, projects)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resolver failure propagates", func(t *testing.T) {
		resolver := &stubResolver{err: fmt.Errorf("connection refused")}
		service, mock, db := newMockService(t, resolver)
		defer db.Close()

		projects, err := service.ListProjects(ctx, 7)
		require.Error(t, err)
		assert.Nil(t, projects)
		assert.Contains(t, err.Error(), "accessible")

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateProject(t *testing.T) {
	ctx := context.Background()

	t.Run("renames project", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		name := "renamed"
		mock.ExpectExec(`UPDATE projects SET updated_at = NOW\(\), name = \$1 WHERE id = \$2`).
			WithArgs("renamed", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateProject(ctx, 1, &UpdateProjectRequest{Name: &name})
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transfers ownership", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		newOwner := int64(9)
		mock.ExpectExec(`UPDATE projects SET updated_at = NOW\(\), owner_id = \$1 WHERE id = \$2`).
			WithArgs(int64(9), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateProject(ctx, 1, &UpdateProjectRequest{OwnerID: &newOwner})
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to update", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		err := service.UpdateProject(ctx, 1, &UpdateProjectRequest{})
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		name := "renamed"
		mock.ExpectExec(`UPDATE projects SET`).
			WithArgs("renamed", int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.UpdateProject(ctx, 99, &UpdateProjectRequest{Name: &name})
		assert.ErrorIs(t, err, ErrProjectNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.DeleteProject(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		service, mock, db := newMockService(t, nil)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.DeleteProject(ctx, 99)
		assert.ErrorIs(t, err, ErrProjectNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
