package access

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Resolver computes effective roles from the membership sources. It holds no
// state beyond the store reference and performs no writes; every call is a
// fresh point-in-time read, so a role change takes effect on the very next
// check.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve computes the effective role the user holds on the project, applying
// the fixed precedence:
//
//  1. Project ownership yields RoleOwner unconditionally.
//  2. A direct project-membership row is returned verbatim. It is an explicit
//     override, not a floor: it wins over the team role even when the team
//     role is higher.
//  3. Otherwise the team-membership role, if the project has a team.
//  4. Otherwise nil. No role, never a default.
//
// The two membership lookups are independent reads and are issued
// concurrently; only the combination of their results is ordered.
// Returns ErrNotFound when the project does not exist.
func (r *Resolver) Resolve(ctx context.Context, userID, projectID int64) (*ResolvedRole, error) {
	project, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if isOwner(project, userID) {
		return &ResolvedRole{Role: RoleOwner, Source: SourceOwnership}, nil
	}

	var direct, inherited *Role
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		direct, err = directProjectRole(gctx, r.store, projectID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		inherited, err = teamRole(gctx, r.store, project, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if direct != nil {
		return &ResolvedRole{Role: *direct, Source: SourceProjectMembership}, nil
	}
	if inherited != nil {
		return &ResolvedRole{Role: *inherited, Source: SourceTeamMembership}, nil
	}
	return nil, nil
}

// ResolveTeamRole returns the user's role in a team, or nil if the user is
// not a member. Team-administration checks read this directly; they do not go
// through the project resolver.
func (r *Resolver) ResolveTeamRole(ctx context.Context, userID, teamID int64) (*Role, error) {
	return r.store.GetTeamRole(ctx, teamID, userID)
}
