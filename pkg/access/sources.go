package access

import "context"

// Store is the data-source contract the resolver depends on. Only independent
// point lookups are required; no joins or transactions. Implementations must
// return ErrNotFound from GetProject when the project does not exist, and a
// nil role (not an error) when a membership row is absent.
type Store interface {
	// GetProject fetches the minimal project row by id.
	GetProject(ctx context.Context, projectID int64) (*ProjectRecord, error)

	// GetProjectRole returns the role from a direct project-membership row
	// for the (project, user) pair, or nil if no row exists.
	GetProjectRole(ctx context.Context, projectID, userID int64) (*Role, error)

	// GetTeamRole returns the role from a team-membership row for the
	// (team, user) pair, or nil if no row exists.
	GetTeamRole(ctx context.Context, teamID, userID int64) (*Role, error)

	// OwnedProjectIDs returns all project ids owned by the user.
	OwnedProjectIDs(ctx context.Context, userID int64) ([]int64, error)

	// MemberProjectIDs returns all project ids with a direct membership row
	// for the user.
	MemberProjectIDs(ctx context.Context, userID int64) ([]int64, error)

	// MemberTeamIDs returns all team ids the user holds any membership in.
	MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error)

	// TeamProjectIDs returns all project ids associated with any of the teams.
	TeamProjectIDs(ctx context.Context, teamIDs []int64) ([]int64, error)
}

// OperatorStore answers the cross-tenant platform-operator check. It is a
// layer above the per-project resolver, not part of the role table.
type OperatorStore interface {
	IsPlatformOperator(ctx context.Context, userID int64) (bool, error)
}

// The three membership sources below are independent, side-effect-free
// lookups. None is aware of the others; precedence between them lives solely
// in Resolver.Resolve.

// isOwner reports whether the user is the project's owner. Ownership is read
// off the project row itself; no membership row is consulted.
func isOwner(project *ProjectRecord, userID int64) bool {
	return project.OwnerID == userID
}

// directProjectRole looks up the user's direct project-membership role, if any.
func directProjectRole(ctx context.Context, store Store, projectID, userID int64) (*Role, error) {
	return store.GetProjectRole(ctx, projectID, userID)
}

// teamRole looks up the user's role in the project's team. Projects without a
// team never have a team role.
func teamRole(ctx context.Context, store Store, project *ProjectRecord, userID int64) (*Role, error) {
	if project.TeamID == nil {
		return nil, nil
	}
	return store.GetTeamRole(ctx, *project.TeamID, userID)
}
