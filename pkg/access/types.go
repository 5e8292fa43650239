package access

// GrantSource identifies which membership source produced an effective role.
// Tests and audit records assert the source, not just the final role, so
// that a change to the precedence order is observable.
type GrantSource string

const (
	// SourceOwnership means the user is the project's owner_id.
	SourceOwnership GrantSource = "ownership"
	// SourceProjectMembership means a direct project-membership row matched.
	SourceProjectMembership GrantSource = "project_membership"
	// SourceTeamMembership means the role was inherited from the project's team.
	SourceTeamMembership GrantSource = "team_membership"
	// SourcePlatformOperator means a cross-tenant operator override applied.
	// Operators bypass per-project grants entirely; the attached role is
	// synthetic and exists only for audit records.
	SourcePlatformOperator GrantSource = "platform_operator"
)

// ResolvedRole is the effective role a user holds on a specific project,
// together with the precedence path that produced it. It is derived fresh on
// every check and never persisted or cached.
type ResolvedRole struct {
	Role   Role        `json:"role"`
	Source GrantSource `json:"source"`
}

// Level returns the privilege level of the resolved role.
func (rr ResolvedRole) Level() int {
	return rr.Role.Level()
}

// ProjectRecord is the minimal project row the resolver needs: who owns it
// and which team, if any, it belongs to. Richer project data lives in the
// projects service.
type ProjectRecord struct {
	ID      int64
	OwnerID int64
	TeamID  *int64
}

// Decision is the result of an allowed gate check. Denials are returned as
// typed errors, never as a Decision.
type Decision struct {
	Capability Capability   `json:"capability"`
	Role       ResolvedRole `json:"role"`
}
