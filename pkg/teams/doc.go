// Package teams provides multi-tenant team management for SitePulse.
//
// # Overview
//
// This package manages teams, team membership, and invitations. A team is
// created together with its owner membership row in a single transaction, so
// every team always has exactly one owner. The owner membership row is
// structurally protected: it cannot be reassigned or removed through member
// mutations, only through the separate ownership-transfer process.
//
// Authorization is not this package's concern. Handlers consult the
// capability gate in pkg/access before calling into the service; the service
// enforces only structural invariants.
//
// # Usage Example
//
// Create a team:
//
//	team := &teams.Team{
//		Name:        "acme",
//		DisplayName: "Acme Corp",
//		OwnerID:     userID,
//	}
//	err := service.CreateTeam(ctx, team)
//
// Invite a member:
//
//	inv := &teams.TeamInvitation{
//		TeamID:    team.ID,
//		Email:     "dev@acme.example",
//		Role:      access.RoleEditor,
//		InvitedBy: userID,
//	}
//	err := service.CreateInvitation(ctx, inv)
//
// Redeem from the invitation email:
//
//	err := service.AcceptInvitation(ctx, token, newUserID)
//
// # Related Packages
//
//   - pkg/access: Role definitions and the capability gate
//   - pkg/projects: Projects optionally associated with a team
package teams
