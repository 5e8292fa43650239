package access

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Capability is a named guarded operation.
type Capability string

const (
	// CapabilityCreateProject requires authentication only; no prior grant.
	CapabilityCreateProject Capability = "project:create"
	// CapabilityViewProject requires any resolved role.
	CapabilityViewProject Capability = "project:view"
	// CapabilityEditProject requires editor or above.
	CapabilityEditProject Capability = "project:edit"
	// CapabilityInviteToProject requires admin or above.
	CapabilityInviteToProject Capability = "project:invite"
	// CapabilityDeleteProjectData requires admin or above.
	CapabilityDeleteProjectData Capability = "project:delete_data"
	// CapabilityManageProject (role and ownership changes) requires owner.
	CapabilityManageProject Capability = "project:manage"
	// CapabilityInviteToTeam requires team admin or above.
	CapabilityInviteToTeam Capability = "team:invite"
	// CapabilityChangeTeamRole requires team admin, and the actor must
	// strictly outrank both the target's current role and the role being
	// assigned.
	CapabilityChangeTeamRole Capability = "team:change_role"
	// CapabilityRemoveTeamMember requires team admin, and the actor must
	// strictly outrank the target.
	CapabilityRemoveTeamMember Capability = "team:remove_member"
)

// minimumLevels is the fixed policy table mapping each capability to the
// minimum role level that satisfies it. LevelNone means any authenticated
// user qualifies.
var minimumLevels = map[Capability]int{
	CapabilityCreateProject:     LevelNone,
	CapabilityViewProject:       LevelViewer,
	CapabilityEditProject:       LevelEditor,
	CapabilityInviteToProject:   LevelAdmin,
	CapabilityDeleteProjectData: LevelAdmin,
	CapabilityManageProject:     LevelOwner,
	CapabilityInviteToTeam:      LevelAdmin,
	CapabilityChangeTeamRole:    LevelAdmin,
	CapabilityRemoveTeamMember:  LevelAdmin,
}

// MinimumLevel returns the threshold for a capability. The second return
// value is false for capabilities not in the table.
func MinimumLevel(c Capability) (int, bool) {
	level, ok := minimumLevels[c]
	return level, ok
}

// Gate authorizes named operations against resolved roles. It is constructed
// once per process and shared by reference across all consumers; it holds no
// mutable state.
type Gate struct {
	resolver  *Resolver
	operators OperatorStore
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithOperatorStore enables the platform-operator override layer. Operators
// bypass per-project and per-team grants, except for the owner-role
// immutability invariant, which binds unconditionally.
func WithOperatorStore(store OperatorStore) GateOption {
	return func(g *Gate) { g.operators = store }
}

// NewGate creates a capability gate over the resolver.
func NewGate(resolver *Resolver, opts ...GateOption) *Gate {
	g := &Gate{resolver: resolver}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthorizeUser authorizes a capability with no resource target, such as
// project creation. Any authenticated caller passes.
func (g *Gate) AuthorizeUser(ctx context.Context, userID int64, capability Capability) (*Decision, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	min, ok := minimumLevels[capability]
	if !ok {
		return nil, fmt.Errorf("unknown capability: %s", capability)
	}
	if min != LevelNone {
		return nil, fmt.Errorf("capability %s requires a resource target", capability)
	}
	return &Decision{Capability: capability}, nil
}

// AuthorizeProject authorizes a project-scoped capability. On allow, the
// decision carries the effective role and the precedence path that produced
// it, for audit. Denials are typed: ErrUnauthenticated, ErrNotFound (which
// deliberately covers both a missing project and an existing project with no
// grant), or InsufficientRoleError. Any other error is a data-source failure
// and must be surfaced as retryable, never as a denial.
func (g *Gate) AuthorizeProject(ctx context.Context, userID, projectID int64, capability Capability) (*Decision, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	min, ok := minimumLevels[capability]
	if !ok {
		return nil, fmt.Errorf("unknown capability: %s", capability)
	}

	if allowed, err := g.isOperator(ctx, userID); err != nil {
		return nil, err
	} else if allowed {
		return &Decision{
			Capability: capability,
			Role:       ResolvedRole{Role: RoleOwner, Source: SourcePlatformOperator},
		}, nil
	}

	resolved, err := g.resolver.Resolve(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrNotFound
	}
	if resolved.Level() < min {
		return nil, &InsufficientRoleError{Capability: capability}
	}
	return &Decision{Capability: capability, Role: *resolved}, nil
}

// AuthorizeTeam authorizes a flat-threshold team-administration capability
// against the caller's team role. Team administration does not go through the
// project resolver.
func (g *Gate) AuthorizeTeam(ctx context.Context, userID, teamID int64, capability Capability) (*Decision, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	min, ok := minimumLevels[capability]
	if !ok {
		return nil, fmt.Errorf("unknown capability: %s", capability)
	}

	if allowed, err := g.isOperator(ctx, userID); err != nil {
		return nil, err
	} else if allowed {
		return &Decision{
			Capability: capability,
			Role:       ResolvedRole{Role: RoleOwner, Source: SourcePlatformOperator},
		}, nil
	}

	role, err := g.resolver.ResolveTeamRole(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrNotFound
	}
	if role.Level() < min {
		return nil, &InsufficientRoleError{Capability: capability}
	}
	return &Decision{
		Capability: capability,
		Role:       ResolvedRole{Role: *role, Source: SourceTeamMembership},
	}, nil
}

// AuthorizeTeamRoleChange authorizes changing another team member's role to
// newRole. Beyond the admin threshold, the actor must strictly outrank both
// the target's current role and the role being assigned; equal rank is
// denied in both directions, which rejects an admin demoting a co-admin as
// well as an admin promoting anyone to admin. The owner role can be neither
// the target's current role nor the new role.
//
// Self-targeting is an orthogonal guard applied by callers before the gate.
func (g *Gate) AuthorizeTeamRoleChange(ctx context.Context, actorID, teamID, targetID int64, newRole Role) (*Decision, error) {
	if actorID == 0 {
		return nil, ErrUnauthenticated
	}
	if !newRole.Valid() {
		return nil, fmt.Errorf("unknown role: %s", newRole)
	}
	if newRole == RoleOwner {
		return nil, ErrOwnerRoleImmutable
	}

	actorRole, targetRole, err := g.teamRolePair(ctx, teamID, actorID, targetID)
	if err != nil {
		return nil, err
	}

	// The actor's standing is settled before anything about the target is
	// surfaced. A zero-grant actor sees ErrNotFound no matter whom they
	// target; anything else would let them probe who holds which role.
	operator, err := g.isOperator(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !operator && actorRole == nil {
		return nil, ErrNotFound
	}

	if *targetRole == RoleOwner {
		return nil, ErrOwnerRoleImmutable
	}

	if operator {
		return &Decision{
			Capability: CapabilityChangeTeamRole,
			Role:       ResolvedRole{Role: RoleOwner, Source: SourcePlatformOperator},
		}, nil
	}

	if actorRole.Level() < LevelAdmin ||
		!actorRole.Outranks(*targetRole) ||
		!actorRole.Outranks(newRole) {
		return nil, &InsufficientRoleError{Capability: CapabilityChangeTeamRole}
	}
	return &Decision{
		Capability: CapabilityChangeTeamRole,
		Role:       ResolvedRole{Role: *actorRole, Source: SourceTeamMembership},
	}, nil
}

// AuthorizeTeamMemberRemoval authorizes removing another member from a team.
// Symmetric with the role-change guard: admin threshold plus the actor must
// strictly outrank the target. The owner can never be removed.
func (g *Gate) AuthorizeTeamMemberRemoval(ctx context.Context, actorID, teamID, targetID int64) (*Decision, error) {
	if actorID == 0 {
		return nil, ErrUnauthenticated
	}

	actorRole, targetRole, err := g.teamRolePair(ctx, teamID, actorID, targetID)
	if err != nil {
		return nil, err
	}

	// Same ordering as role changes: a zero-grant actor learns nothing
	// about the target, owner included.
	operator, err := g.isOperator(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !operator && actorRole == nil {
		return nil, ErrNotFound
	}

	if *targetRole == RoleOwner {
		return nil, ErrOwnerRoleImmutable
	}

	if operator {
		return &Decision{
			Capability: CapabilityRemoveTeamMember,
			Role:       ResolvedRole{Role: RoleOwner, Source: SourcePlatformOperator},
		}, nil
	}

	if actorRole.Level() < LevelAdmin || !actorRole.Outranks(*targetRole) {
		return nil, &InsufficientRoleError{Capability: CapabilityRemoveTeamMember}
	}
	return &Decision{
		Capability: CapabilityRemoveTeamMember,
		Role:       ResolvedRole{Role: *actorRole, Source: SourceTeamMembership},
	}, nil
}

// teamRolePair fetches the actor's and target's team roles concurrently.
// A missing target membership presents as ErrNotFound; a missing actor
// membership is reported through a nil actor role so callers can apply the
// operator override first.
func (g *Gate) teamRolePair(ctx context.Context, teamID, actorID, targetID int64) (actorRole, targetRole *Role, err error) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		actorRole, err = g.resolver.ResolveTeamRole(gctx, actorID, teamID)
		return err
	})
	eg.Go(func() error {
		var err error
		targetRole, err = g.resolver.ResolveTeamRole(gctx, targetID, teamID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	if targetRole == nil {
		return nil, nil, ErrNotFound
	}
	return actorRole, targetRole, nil
}

func (g *Gate) isOperator(ctx context.Context, userID int64) (bool, error) {
	if g.operators == nil {
		return false, nil
	}
	return g.operators.IsPlatformOperator(ctx, userID)
}
