// Package access implements the hierarchical authorization resolver for the
// SitePulse back office: effective-role resolution, the accessible-project
// set, and the capability gate that every mutating or listing route consults.
//
// # Overview
//
// A user's rights on a project can come from three independent sources:
// ownership of the project itself, a direct project-membership row, and a
// team-membership row when the project is associated with a team. These
// sources can disagree; the resolver merges them under one fixed precedence
// rule so every route observes the same answer.
//
// # Roles
//
// Roles form a closed, totally ordered set:
//
//	viewer < editor < admin < owner
//
// All comparisons go through integer levels (Role.Level); role names are
// never compared directly. Unknown role strings map to level 0, so malformed
// rows fail closed.
//
// # Effective role resolution
//
// Resolver.Resolve applies, in order:
//
//  1. Project ownership: owner_id match yields owner, unconditionally.
//  2. Direct project membership: returned verbatim. A direct grant is an
//     explicit override, not a floor: it wins over a higher team role just
//     as it wins over a lower one.
//  3. Team membership, when the project has a team.
//  4. No role. Nil, never a defaulted viewer.
//
// The order is load-bearing: swapping steps 2 and 3, or merging them by
// maximum, changes observable behavior and is a defect. The ResolvedRole
// carries a GrantSource so callers and tests can assert which step fired.
//
// Resolution is a pure read-time computation. Nothing is cached across
// requests; a membership change is visible to the very next check.
//
// # Accessible set
//
// Resolver.AccessibleProjectIDs computes everything a user can see at any
// grant level (owned, directly membered, and team-reachable project ids)
// for scoping list queries. It answers "can see", not "can do"; single
// actions go through Resolve plus the gate.
//
// # Capability gate
//
// Gate maps named capabilities to minimum role levels and evaluates them
// against either the resolved project role or, for team administration, the
// raw team role. Role changes and member removals inside a team carry an
// extra outranking condition, and the team owner role is immutable through
// the gate entirely.
//
// Denials are typed: ErrUnauthenticated, ErrNotFound (which deliberately
// hides whether the resource exists), InsufficientRoleError, and
// ErrOwnerRoleImmutable. Any other error is a data-source failure and must be
// retried, never treated as a denial or an allow.
//
// # Usage
//
//	store := access.NewSQLStore(db)
//	resolver := access.NewResolver(store)
//	gate := access.NewGate(resolver, access.WithOperatorStore(store))
//
//	decision, err := gate.AuthorizeProject(ctx, userID, projectID, access.CapabilityEditProject)
//	if err != nil {
//		// typed denial or retryable source failure
//	}
//	// decision.Role records the grant and the precedence path for audit
package access
