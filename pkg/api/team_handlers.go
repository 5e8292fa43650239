package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sitepulse/sitepulse/pkg/access"
	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/httputil"
	"github.com/sitepulse/sitepulse/pkg/teams"
)

// TeamHandlers handles team, membership, and invitation HTTP requests.
// Flat-threshold checks run in the gate middleware; role change and member
// removal need the target's role and call the gate from the handler.
type TeamHandlers struct {
	service teams.Service
	gate    *access.Gate
	auditor audit.Logger
}

// NewTeamHandlers creates team handlers.
func NewTeamHandlers(service teams.Service, gate *access.Gate, auditor audit.Logger) *TeamHandlers {
	return &TeamHandlers{
		service: service,
		gate:    gate,
		auditor: auditor,
	}
}

// RegisterRoutes registers team routes with their capability gates.
func (h *TeamHandlers) RegisterRoutes(router *mux.Router, gm *access.GateMiddleware) {
	router.HandleFunc("/teams", h.CreateTeam).Methods("POST")
	router.HandleFunc("/teams", h.ListTeams).Methods("GET")
	router.HandleFunc("/teams/{id}", h.GetTeam).Methods("GET")

	invite := gm.RequireTeamCapability(access.CapabilityInviteToTeam)

	router.Handle("/teams/{id}", invite(http.HandlerFunc(h.UpdateTeam))).Methods("PUT")
	router.HandleFunc("/teams/{id}", h.DeleteTeam).Methods("DELETE")

	router.HandleFunc("/teams/{id}/members", h.ListMembers).Methods("GET")
	router.HandleFunc("/teams/{id}/members/{user_id}", h.UpdateMemberRole).Methods("PUT")
	router.HandleFunc("/teams/{id}/members/{user_id}", h.RemoveMember).Methods("DELETE")

	router.Handle("/teams/{id}/invitations", invite(http.HandlerFunc(h.CreateInvitation))).Methods("POST")
	router.Handle("/teams/{id}/invitations", invite(http.HandlerFunc(h.ListInvitations))).Methods("GET")
	router.Handle("/teams/{id}/invitations/{invitation_id}", invite(http.HandlerFunc(h.RevokeInvitation))).Methods("DELETE")

	router.HandleFunc("/invitations/{token}/accept", h.AcceptInvitation).Methods("POST")
}

// CreateTeam creates a team with the caller as owner. Any authenticated
// user may create a team; the owner membership row is written in the same
// transaction as the team.
func (h *TeamHandlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req teams.CreateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "team name") {
		return
	}

	team := &teams.Team{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		OwnerID:     userID,
	}
	if err := h.service.CreateTeam(r.Context(), team); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataTeamCreate, &userID,
		audit.ResourceTypeTeam, strconv.FormatInt(team.ID, 10), nil, team.Name)

	httputil.WriteCreated(w, team)
}

// ListTeams lists the caller's teams.
func (h *TeamHandlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListTeams(r.Context(), userID)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// GetTeam returns a team to its members. Non-members get the same 404 as a
// missing team.
func (h *TeamHandlers) GetTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	if _, err := h.service.GetMember(r.Context(), id, userID); err != nil {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	team, err := h.service.GetTeam(r.Context(), id)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	httputil.WriteSuccess(w, team)
}

// UpdateTeam updates team metadata. The invite gate already enforced the
// admin threshold.
func (h *TeamHandlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	var req teams.UpdateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.UpdateTeam(r.Context(), id, &req); err != nil {
		writeTeamError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataTeamUpdate, &userID,
			audit.ResourceTypeTeam, strconv.FormatInt(id, 10), nil, "team updated")
	}

	httputil.WriteNoContent(w)
}

// DeleteTeam deletes a team. Only the team owner may delete it; everyone
// else, member or not, gets the uniform 404 or a 403.
func (h *TeamHandlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	member, err := h.service.GetMember(r.Context(), id, userID)
	if err != nil {
		httputil.WriteNotFoundError(w, "not found")
		return
	}
	if member.Role != access.RoleOwner {
		httputil.WriteForbidden(w, "insufficient role for team deletion")
		return
	}

	if err := h.service.DeleteTeam(r.Context(), id); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataTeamDelete, &userID,
		audit.ResourceTypeTeam, strconv.FormatInt(id, 10), nil, "team deleted")

	httputil.WriteNoContent(w)
}

// ListMembers lists a team's members. Member-visible: non-members get the
// uniform 404.
func (h *TeamHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	if _, err := h.service.GetMember(r.Context(), id, userID); err != nil {
		httputil.WriteNotFoundError(w, "not found")
		return
	}

	members, err := h.service.ListMembers(r.Context(), id)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	httputil.WriteSuccess(w, members)
}

// UpdateMemberRole changes another member's role. The gate enforces the
// double outrank condition: the actor must strictly outrank both the
// target's current role and the role being assigned.
func (h *TeamHandlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}
	targetID, err := httputil.ParsePathInt64(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	if targetID == actorID {
		httputil.WriteForbidden(w, "cannot change your own role")
		return
	}

	var req teams.UpdateMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := h.gate.AuthorizeTeamRoleChange(r.Context(), actorID, id, targetID, req.Role); err != nil {
		h.auditDenied(r, access.CapabilityChangeTeamRole, actorID, id, err)
		writeGateError(w, err)
		return
	}

	if err := h.service.UpdateMemberRole(r.Context(), id, targetID, req.Role); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogAuthorization(r.Context(), audit.EventTypeAuthzRoleChange, &actorID,
		audit.ResourceTypeTeam, strconv.FormatInt(id, 10), audit.EventStatusSuccess,
		"user "+strconv.FormatInt(targetID, 10)+" set to "+string(req.Role))

	httputil.WriteNoContent(w)
}

// RemoveMember removes another member from the team. The gate enforces the
// outrank condition; the owner can never be removed.
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}
	targetID, err := httputil.ParsePathInt64(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}
	if targetID == actorID {
		httputil.WriteForbidden(w, "cannot remove yourself")
		return
	}

	if _, err := h.gate.AuthorizeTeamMemberRemoval(r.Context(), actorID, id, targetID); err != nil {
		h.auditDenied(r, access.CapabilityRemoveTeamMember, actorID, id, err)
		writeGateError(w, err)
		return
	}

	if err := h.service.RemoveMember(r.Context(), id, targetID); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataTeamMemberRemove, &actorID,
		audit.ResourceTypeTeam, strconv.FormatInt(id, 10), nil,
		"removed user "+strconv.FormatInt(targetID, 10))

	httputil.WriteNoContent(w)
}

// CreateInvitation invites an email address to the team.
func (h *TeamHandlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	var req teams.InviteMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	userID, _ := principal(r)
	invitation := &teams.TeamInvitation{
		TeamID:    id,
		Email:     req.Email,
		Role:      req.Role,
		InvitedBy: userID,
	}
	if err := h.service.CreateInvitation(r.Context(), invitation); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataInvitationCreate, &userID,
		audit.ResourceTypeInvitation, strconv.FormatInt(invitation.ID, 10), nil,
		"invited "+req.Email+" as "+string(req.Role))

	httputil.WriteCreated(w, invitation)
}

// ListInvitations lists the team's pending invitations.
func (h *TeamHandlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid team id")
		return
	}

	invitations, err := h.service.ListInvitations(r.Context(), id)
	if err != nil {
		writeTeamError(w, err)
		return
	}

	httputil.WriteSuccess(w, invitations)
}

// RevokeInvitation revokes a pending invitation.
func (h *TeamHandlers) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, err := httputil.ParsePathInt64(r, "invitation_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid invitation id")
		return
	}

	if err := h.service.RevokeInvitation(r.Context(), invitationID); err != nil {
		writeTeamError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataInvitationRevoke, &userID,
			audit.ResourceTypeInvitation, strconv.FormatInt(invitationID, 10), nil,
			"invitation revoked")
	}

	httputil.WriteNoContent(w)
}

// AcceptInvitation redeems an invitation token for the caller.
func (h *TeamHandlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	token := mux.Vars(r)["token"]

	if err := h.service.AcceptInvitation(r.Context(), token, userID); err != nil {
		writeTeamError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataInvitationAccept, &userID,
		audit.ResourceTypeInvitation, token, nil, "invitation accepted")

	httputil.WriteNoContent(w)
}

// auditDenied records a gate denial from a handler-invoked check. Data-source
// failures are not denials and are not audited.
func (h *TeamHandlers) auditDenied(r *http.Request, capability access.Capability, actorID, teamID int64, err error) {
	if !access.IsDenial(err) {
		return
	}
	h.auditor.LogAuthorization(r.Context(), audit.EventTypeAuthzAccessDenied, &actorID,
		audit.ResourceTypeTeam, strconv.FormatInt(teamID, 10), audit.EventStatusDenied,
		string(capability))
}

// writeTeamError maps service errors to responses.
func writeTeamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, teams.ErrTeamNotFound),
		errors.Is(err, teams.ErrMemberNotFound),
		errors.Is(err, teams.ErrInvitationNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, teams.ErrOwnerRowProtected):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, teams.ErrMemberExists):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, teams.ErrInvitationExpired):
		httputil.WriteErrorMessage(w, http.StatusGone, err.Error())
	case errors.Is(err, teams.ErrInvitationAccepted):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
