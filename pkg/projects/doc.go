// Package projects manages customer workspaces and their direct membership
// rows.
//
// # Overview
//
// A project belongs to exactly one owner and optionally to one team. The
// owner needs no membership row; direct membership rows are explicit
// per-project grants that override the user's team-derived role in both
// directions. Authorization decisions themselves live in pkg/access; this
// package only stores the rows the resolver reads.
//
// # Usage
//
//	service := projects.NewPostgresService(db, resolver)
//
//	project, err := service.CreateProject(ctx, actorID, &projects.CreateProjectRequest{
//		Name: "storefront",
//		Kind: projects.KindStorefrontSync,
//	})
//
// Listing is filtered by the caller's accessible set, so a user only ever
// sees projects they can reach:
//
//	mine, err := service.ListProjects(ctx, actorID)
//
// # Related Packages
//
//   - pkg/access: role resolution and capability gating
//   - pkg/teams: team and invitation management
package projects
