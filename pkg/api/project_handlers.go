package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sitepulse/sitepulse/pkg/access"
	"github.com/sitepulse/sitepulse/pkg/audit"
	"github.com/sitepulse/sitepulse/pkg/httputil"
	"github.com/sitepulse/sitepulse/pkg/middleware"
	"github.com/sitepulse/sitepulse/pkg/projects"
)

// ProjectHandlers handles project and project-membership HTTP requests.
// Per-route authorization lives in the gate middleware; create and list are
// the two operations without a resource target and call the gate or the
// aggregator directly.
type ProjectHandlers struct {
	service projects.Service
	gate    *access.Gate
	auditor audit.Logger
}

// NewProjectHandlers creates project handlers.
func NewProjectHandlers(service projects.Service, gate *access.Gate, auditor audit.Logger) *ProjectHandlers {
	return &ProjectHandlers{
		service: service,
		gate:    gate,
		auditor: auditor,
	}
}

// RegisterRoutes registers project routes with their capability gates.
func (h *ProjectHandlers) RegisterRoutes(router *mux.Router, gm *access.GateMiddleware) {
	router.HandleFunc("/projects", h.CreateProject).Methods("POST")
	router.HandleFunc("/projects", h.ListProjects).Methods("GET")

	view := gm.RequireProjectCapability(access.CapabilityViewProject)
	edit := gm.RequireProjectCapability(access.CapabilityEditProject)
	invite := gm.RequireProjectCapability(access.CapabilityInviteToProject)
	manage := gm.RequireProjectCapability(access.CapabilityManageProject)

	router.Handle("/projects/{id}", view(http.HandlerFunc(h.GetProject))).Methods("GET")
	router.Handle("/projects/{id}", edit(http.HandlerFunc(h.UpdateProject))).Methods("PUT")
	router.Handle("/projects/{id}", manage(http.HandlerFunc(h.DeleteProject))).Methods("DELETE")
	router.Handle("/projects/{id}/owner", manage(http.HandlerFunc(h.TransferOwnership))).Methods("PUT")

	router.Handle("/projects/{id}/members", view(http.HandlerFunc(h.ListMembers))).Methods("GET")
	router.Handle("/projects/{id}/members", invite(http.HandlerFunc(h.AddMember))).Methods("POST")
	router.Handle("/projects/{id}/members/{user_id}", manage(http.HandlerFunc(h.UpdateMember))).Methods("PUT")
	router.Handle("/projects/{id}/members/{user_id}", invite(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
}

// CreateProject creates a project owned by the caller. Any authenticated
// user may create projects; no prior grant is required.
func (h *ProjectHandlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if _, err := h.gate.AuthorizeUser(r.Context(), userID, access.CapabilityCreateProject); err != nil {
		writeGateError(w, err)
		return
	}

	var req projects.CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "project name") {
		return
	}

	project, err := h.service.CreateProject(r.Context(), userID, &req)
	if err != nil {
		writeProjectError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectCreate, &userID,
		audit.ResourceTypeProject, strconv.FormatInt(project.ID, 10), nil, project.Name)

	httputil.WriteCreated(w, project)
}

// ListProjects lists every project the caller can reach. The service applies
// the accessible set, so no per-row gating happens here.
func (h *ProjectHandlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceUnavailable(w, "authorization check failed, retry later")
		return
	}

	httputil.WriteSuccess(w, list)
}

// GetProject returns a project. The view gate already ran.
func (h *ProjectHandlers) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		writeProjectError(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

// UpdateProject updates project metadata. Ownership transfer has its own
// route at the manage level and is rejected here.
func (h *ProjectHandlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	var req projects.UpdateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.OwnerID != nil {
		httputil.WriteForbidden(w, "ownership transfer uses the owner endpoint")
		return
	}

	if err := h.service.UpdateProject(r.Context(), id, &req); err != nil {
		writeProjectError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectUpdate, &userID,
			audit.ResourceTypeProject, strconv.FormatInt(id, 10), nil, "project updated")
	}

	httputil.WriteNoContent(w)
}

// TransferOwnership moves the project to a new owner. Gated at the manage
// level; the previous owner keeps access only through memberships.
func (h *ProjectHandlers) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	var req struct {
		OwnerID int64 `json:"owner_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonZero(w, req.OwnerID, "owner_id") {
		return
	}

	updates := &projects.UpdateProjectRequest{OwnerID: &req.OwnerID}
	if err := h.service.UpdateProject(r.Context(), id, updates); err != nil {
		writeProjectError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectUpdate, &userID,
			audit.ResourceTypeProject, strconv.FormatInt(id, 10), nil,
			"ownership transferred to user "+strconv.FormatInt(req.OwnerID, 10))
	}

	httputil.WriteNoContent(w)
}

// DeleteProject deletes a project and its membership rows.
func (h *ProjectHandlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		writeProjectError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectDelete, &userID,
			audit.ResourceTypeProject, strconv.FormatInt(id, 10), nil, "project deleted")
	}

	httputil.WriteNoContent(w)
}

// ListMembers lists the project's direct membership rows.
func (h *ProjectHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	members, err := h.service.ListMembers(r.Context(), id)
	if err != nil {
		writeProjectError(w, err)
		return
	}

	httputil.WriteSuccess(w, members)
}

// AddMember grants a user a direct role on the project.
func (h *ProjectHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}

	var req struct {
		UserID int64       `json:"user_id"`
		Role   access.Role `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonZero(w, req.UserID, "user_id") {
		return
	}

	userID, _ := principal(r)
	var grantedBy *int64
	if userID != 0 {
		grantedBy = &userID
	}

	if err := h.service.AddMember(r.Context(), id, req.UserID, req.Role, grantedBy); err != nil {
		writeProjectError(w, err)
		return
	}

	h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectMemberAdd, grantedBy,
		audit.ResourceTypeProject, strconv.FormatInt(id, 10), nil,
		"granted "+string(req.Role)+" to user "+strconv.FormatInt(req.UserID, 10))

	w.WriteHeader(http.StatusCreated)
}

// UpdateMember changes a direct grant's role. Gated at the manage level
// because a direct grant overrides team-derived roles in both directions.
func (h *ProjectHandlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}
	targetID, err := httputil.ParsePathInt64(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	var req struct {
		Role access.Role `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.UpdateMemberRole(r.Context(), id, targetID, req.Role); err != nil {
		writeProjectError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogAuthorization(r.Context(), audit.EventTypeAuthzRoleChange, &userID,
			audit.ResourceTypeProject, strconv.FormatInt(id, 10), audit.EventStatusSuccess,
			"user "+strconv.FormatInt(targetID, 10)+" set to "+string(req.Role))
	}

	httputil.WriteNoContent(w)
}

// RemoveMember removes a direct grant.
func (h *ProjectHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid project id")
		return
	}
	targetID, err := httputil.ParsePathInt64(r, "user_id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid user id")
		return
	}

	if err := h.service.RemoveMember(r.Context(), id, targetID); err != nil {
		writeProjectError(w, err)
		return
	}

	if userID, _ := principal(r); userID != 0 {
		h.auditor.LogDataMutation(r.Context(), audit.EventTypeDataProjectMemberRemove, &userID,
			audit.ResourceTypeProject, strconv.FormatInt(id, 10), nil,
			"removed user "+strconv.FormatInt(targetID, 10))
	}

	httputil.WriteNoContent(w)
}

// writeProjectError maps service errors to responses.
func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, projects.ErrProjectNotFound), errors.Is(err, projects.ErrMemberNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, projects.ErrUnknownKind), errors.Is(err, projects.ErrUnknownRole):
		httputil.WriteValidationError(w, err.Error())
	case errors.Is(err, projects.ErrMemberExists):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

// principal returns the authenticated user id, or 0 and false when the
// request carries no principal.
func principal(r *http.Request) (int64, bool) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		return 0, false
	}
	return authCtx.User.ID, true
}

// requirePrincipal writes a 401 when the request is unauthenticated.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := principal(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
	}
	return userID, ok
}

// writeGateError maps gate denials to responses, mirroring the gate
// middleware's taxonomy for the handler-invoked checks.
func writeGateError(w http.ResponseWriter, err error) {
	var insufficient *access.InsufficientRoleError
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "authentication required")
	case errors.Is(err, access.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, access.ErrOwnerRoleImmutable):
		httputil.WriteForbidden(w, err.Error())
	case errors.As(err, &insufficient):
		httputil.WriteForbidden(w, insufficient.Error())
	default:
		httputil.WriteServiceUnavailable(w, "authorization check failed, retry later")
	}
}
