package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/taiga"
	"github.com/taigabridge/taigabridge/pkg/httpx"
)

// ProjectHandler serves the project-specific operations that fall outside
// the generic CRUD surface: slug lookup, membership listing, and invites.
type ProjectHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(manager SessionManager, log *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		manager: manager,
		logger:  log,
	}
}

// InviteRequest invites a user to a project by email.
type InviteRequest struct {
	Email  string `json:"email" validate:"required,email,max=254"`
	RoleID int    `json:"role_id" validate:"required,gt=0"`
}

// GetBySlug handles GET /api/v1/project/by-slug/{slug}
func (h *ProjectHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	client, ok := h.validate(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		httpx.WriteBadRequest(w, "slug is required")
		return
	}

	project, err := client.GetProjectBySlug(r.Context(), slug)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, project)
}

// Members handles GET /api/v1/project/{id}/members
func (h *ProjectHandler) Members(w http.ResponseWriter, r *http.Request) {
	client, ok := h.validate(w, r)
	if !ok {
		return
	}
	id, err := projectIDParam(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	members, err := client.ListMembers(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if members == nil {
		members = []models.Resource{}
	}
	httpx.WriteJSON(w, http.StatusOK, members)
}

// Invite handles POST /api/v1/project/{id}/invite
func (h *ProjectHandler) Invite(w http.ResponseWriter, r *http.Request) {
	client, ok := h.validate(w, r)
	if !ok {
		return
	}
	id, err := projectIDParam(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	var req InviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	membership, err := client.InviteMember(r.Context(), id, req.Email, req.RoleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, membership)
}

// Metadata handles GET /api/v1/project/{id}/meta/{meta}. It lists the
// project's value set for one metadata kind (statuses, priorities,
// severities, types).
func (h *ProjectHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	client, ok := h.validate(w, r)
	if !ok {
		return
	}
	id, err := projectIDParam(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	meta, err := models.ParseMetaKind(chi.URLParam(r, "meta"))
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	values, err := client.ListMetadata(r.Context(), meta, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if values == nil {
		values = []models.Resource{}
	}
	httpx.WriteJSON(w, http.StatusOK, values)
}

// validate resolves the session header to a client handle, writing the
// error response itself when the session is missing or invalid.
func (h *ProjectHandler) validate(w http.ResponseWriter, r *http.Request) (taiga.API, bool) {
	sessionID := sessionFrom(r)
	if sessionID == "" {
		httpx.WriteUnauthorized(w, sessionHeader+" header is required")
		return nil, false
	}
	client, err := h.manager.Validate(sessionID)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return client, true
}

func projectIDParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("project id must be a positive integer")
	}
	return id, nil
}
