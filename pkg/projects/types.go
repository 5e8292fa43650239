package projects

import (
	"context"
	"errors"
	"time"

	"github.com/sitepulse/sitepulse/pkg/access"
)

// Service errors
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("project member not found")
	ErrMemberExists    = errors.New("member already exists")
	ErrUnknownKind     = errors.New("unknown project kind")
	ErrUnknownRole     = errors.New("unknown role")
)

// Kind is the product flavor of a project. It has no effect on authorization;
// it only selects which collectors and dashboards the project gets.
type Kind string

const (
	KindSEOAudit       Kind = "seo_audit"
	KindStorefrontSync Kind = "storefront_sync"
	KindAssetTracking  Kind = "asset_tracking"
	KindQRAnalytics    Kind = "qr_analytics"
)

// Valid reports whether the kind is one of the known project kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSEOAudit, KindStorefrontSync, KindAssetTracking, KindQRAnalytics:
		return true
	}
	return false
}

// Project is a customer workspace. OwnerID always names exactly one user;
// TeamID is optional and links team memberships into the project's
// authorization surface.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	OwnerID   int64     `json:"owner_id"`
	TeamID    *int64    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectMember is a direct per-project grant, independent of any team
// membership on the project's team.
type ProjectMember struct {
	ID        int64       `json:"id"`
	ProjectID int64       `json:"project_id"`
	UserID    int64       `json:"user_id"`
	Role      access.Role `json:"role"`
	GrantedBy *int64      `json:"granted_by,omitempty"`
	GrantedAt time.Time   `json:"granted_at"`
}

// CreateProjectRequest carries the fields a caller supplies when creating a
// project. The creator becomes the owner.
type CreateProjectRequest struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	TeamID *int64 `json:"team_id,omitempty"`
}

// UpdateProjectRequest carries optional field updates. Nil fields are left
// untouched. OwnerID updates are ownership transfers and are gated at the
// manage-project level by the caller.
type UpdateProjectRequest struct {
	Name    *string `json:"name,omitempty"`
	TeamID  *int64  `json:"team_id,omitempty"`
	OwnerID *int64  `json:"owner_id,omitempty"`
}

// Service manages projects and their direct membership rows.
type Service interface {
	CreateProject(ctx context.Context, ownerID int64, req *CreateProjectRequest) (*Project, error)
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, userID int64) ([]*Project, error)
	UpdateProject(ctx context.Context, id int64, updates *UpdateProjectRequest) error
	DeleteProject(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, projectID int64) ([]*ProjectMember, error)
	AddMember(ctx context.Context, projectID, userID int64, role access.Role, grantedBy *int64) error
	UpdateMemberRole(ctx context.Context, projectID, userID int64, role access.Role) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
}
