package teams

import (
	"context"
	"errors"
	"time"

	"github.com/sitepulse/sitepulse/pkg/access"
)

var (
	// ErrTeamNotFound is returned when the team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrMemberNotFound is returned when no membership row matches.
	ErrMemberNotFound = errors.New("team member not found")

	// ErrMemberExists is returned when the membership row already exists.
	ErrMemberExists = errors.New("member already exists")

	// ErrInvitationNotFound is returned for unknown or revoked tokens.
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrInvitationExpired is returned when the token's expiry has passed.
	ErrInvitationExpired = errors.New("invitation expired")

	// ErrInvitationAccepted is returned when the token was already used.
	ErrInvitationAccepted = errors.New("invitation already accepted")

	// ErrOwnerRowProtected is returned by mutations that would touch the
	// team's owner membership row. The owner role is assigned once at team
	// creation and changes only through ownership transfer, which is not a
	// membership mutation.
	ErrOwnerRowProtected = errors.New("owner membership cannot be modified")
)

// Team represents a tenant workspace. Every team has exactly one owner,
// recorded both on the team row and as an owner membership row.
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamMember represents a user's membership in a team
type TeamMember struct {
	ID        int64       `json:"id"`
	TeamID    int64       `json:"team_id"`
	UserID    int64       `json:"user_id"`
	Role      access.Role `json:"role"`
	InvitedBy *int64      `json:"invited_by,omitempty"`
	JoinedAt  time.Time   `json:"joined_at"`
}

// TeamInvitation represents a pending invitation to join a team
type TeamInvitation struct {
	ID         int64       `json:"id"`
	TeamID     int64       `json:"team_id"`
	Email      string      `json:"email"`
	Role       access.Role `json:"role"`
	Token      string      `json:"token,omitempty"`
	InvitedBy  int64       `json:"invited_by"`
	InvitedAt  time.Time   `json:"invited_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	AcceptedAt *time.Time  `json:"accepted_at,omitempty"`
	AcceptedBy *int64      `json:"accepted_by,omitempty"`
}

// CreateTeamRequest represents a request to create a team
type CreateTeamRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// UpdateTeamRequest represents a request to update a team
type UpdateTeamRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
}

// InviteMemberRequest represents a request to invite a member
type InviteMemberRequest struct {
	Email string      `json:"email"`
	Role  access.Role `json:"role"`
}

// UpdateMemberRequest represents a request to change a member's role
type UpdateMemberRequest struct {
	Role access.Role `json:"role"`
}

// Service defines the interface for team management. Authorization is the
// caller's concern; the service enforces only the structural invariants
// (exactly one owner, protected owner row, invitation lifecycle).
type Service interface {
	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id int64) (*Team, error)
	ListTeams(ctx context.Context, userID int64) ([]*Team, error)
	UpdateTeam(ctx context.Context, id int64, updates *UpdateTeamRequest) error
	DeleteTeam(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, teamID int64) ([]*TeamMember, error)
	GetMember(ctx context.Context, teamID, userID int64) (*TeamMember, error)
	AddMember(ctx context.Context, teamID, userID int64, role access.Role, invitedBy *int64) error
	UpdateMemberRole(ctx context.Context, teamID, userID int64, role access.Role) error
	RemoveMember(ctx context.Context, teamID, userID int64) error

	CreateInvitation(ctx context.Context, invitation *TeamInvitation) error
	GetInvitation(ctx context.Context, token string) (*TeamInvitation, error)
	ListInvitations(ctx context.Context, teamID int64) ([]*TeamInvitation, error)
	AcceptInvitation(ctx context.Context, token string, userID int64) error
	RevokeInvitation(ctx context.Context, id int64) error
	CleanupExpiredInvitations(ctx context.Context) (int64, error)
}
