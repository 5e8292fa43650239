package access

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ProjectIDSet is the set of project ids a user can reach at any grant level.
// It answers "can list/see" questions and is deliberately coarser than
// Resolve, which answers "can perform action X".
type ProjectIDSet map[int64]struct{}

// Contains reports whether the project id is in the set.
func (s ProjectIDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the set as a sorted slice, for use as a SQL inclusion predicate.
func (s ProjectIDSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AccessibleProjectIDs computes the union of projects the user owns, projects
// with a direct membership row for the user, and projects belonging to any
// team the user is a member of. Team membership of any level grants
// visibility, consistent with the resolver's team step applying even to
// viewers. Returns an empty set, never an error, for a user with no grants.
//
// The three source queries are independent and run concurrently.
func (r *Resolver) AccessibleProjectIDs(ctx context.Context, userID int64) (ProjectIDSet, error) {
	var owned, membered, teamReachable []int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = r.store.OwnedProjectIDs(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		membered, err = r.store.MemberProjectIDs(gctx, userID)
		return err
	})
	g.Go(func() error {
		teamIDs, err := r.store.MemberTeamIDs(gctx, userID)
		if err != nil {
			return err
		}
		if len(teamIDs) == 0 {
			return nil
		}
		teamReachable, err = r.store.TeamProjectIDs(gctx, teamIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(ProjectIDSet, len(owned)+len(membered)+len(teamReachable))
	for _, ids := range [][]int64{owned, membered, teamReachable} {
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return set, nil
}
