package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/taiga"
	"github.com/taigabridge/taigabridge/pkg/httpx"
)

// allowedFields whitelists the optional fields accepted on create and update
// per resource kind. Unknown fields are rejected before any backend call.
var allowedFields = map[models.ResourceKind]map[string]bool{
	models.KindProject:   fieldSet("description", "is_private", "default_owner_role", "tags"),
	models.KindUserStory: fieldSet("description", "assigned_to", "milestone", "status", "tags"),
	models.KindTask:      fieldSet("description", "assigned_to", "user_story", "milestone", "status", "tags"),
	models.KindIssue:     fieldSet("description", "assigned_to", "status", "priority", "severity", "type", "tags"),
	models.KindEpic:      fieldSet("description", "assigned_to", "color"),
	models.KindMilestone: fieldSet("estimated_start", "estimated_finish"),
	models.KindWikiPage:  fieldSet("content", "watchers"),
}

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// ResourceHandler serves the generic CRUD surface for every resource kind.
// There is exactly one handler per verb; the kind arrives as a route
// parameter and is dispatched through the closed enumeration.
type ResourceHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(manager SessionManager, log *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		manager: manager,
		logger:  log,
	}
}

// CreateResourceRequest carries a create payload. Subject and Name cover the
// title field the various kinds require; everything else rides in Fields
// subject to the per-kind whitelist.
type CreateResourceRequest struct {
	ProjectID   int            `json:"project_id" validate:"omitempty,gt=0"`
	Subject     string         `json:"subject" validate:"omitempty,max=500"`
	Name        string         `json:"name" validate:"omitempty,max=255"`
	Slug        string         `json:"slug" validate:"omitempty,max=255"`
	Description string         `json:"description" validate:"omitempty,max=10000"`
	Fields      map[string]any `json:"fields"`
}

// UpdateResourceRequest carries a partial update.
type UpdateResourceRequest struct {
	Subject     string         `json:"subject" validate:"omitempty,max=500"`
	Name        string         `json:"name" validate:"omitempty,max=255"`
	Description string         `json:"description" validate:"omitempty,max=10000"`
	Fields      map[string]any `json:"fields"`
}

// AssignRequest names the user a resource is assigned to.
type AssignRequest struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
}

// DeleteResponse confirms a delete.
type DeleteResponse struct {
	Status string              `json:"status"`
	Kind   models.ResourceKind `json:"resource_type"`
	ID     int                 `json:"id"`
}

// List handles GET /api/v1/{kind}. Project-scoped kinds take the scope from
// the "project" query parameter; remaining query parameters pass through as
// backend filters.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	projectID := 0
	if raw := query.Get("project"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			httpx.WriteBadRequest(w, "project must be a positive integer")
			return
		}
		projectID = id
		query.Del("project")
	}

	filters := url.Values{}
	for k, vs := range query {
		filters[k] = vs
	}

	resources, err := client.ListResources(r.Context(), kind, projectID, filters)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if resources == nil {
		resources = []models.Resource{}
	}
	httpx.WriteJSON(w, http.StatusOK, resources)
}

// Get handles GET /api/v1/{kind}/{id}
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}
	id, err := resourceID(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	resource, err := client.GetResource(r.Context(), kind, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resource)
}

// Create handles POST /api/v1/{kind}
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}

	var req CreateResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	fields, err := buildCreateFields(kind, &req)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	resource, err := client.CreateResource(r.Context(), kind, req.ProjectID, fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resource)
}

// Update handles PATCH /api/v1/{kind}/{id}
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}
	id, err := resourceID(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	var req UpdateResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	fields, err := buildUpdateFields(kind, &req)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	resource, err := client.UpdateResource(r.Context(), kind, id, fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resource)
}

// Delete handles DELETE /api/v1/{kind}/{id}
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}
	id, err := resourceID(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	h.logger.Warn("deleting resource",
		slog.String("resource_kind", string(kind)),
		slog.Int("resource_id", id))

	if err := client.DeleteResource(r.Context(), kind, id); err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, DeleteResponse{Status: "deleted", Kind: kind, ID: id})
}

// Assign handles POST /api/v1/{kind}/{id}/assign
func (h *ResourceHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	h.assign(w, r, req.UserID)
}

// Unassign handles POST /api/v1/{kind}/{id}/unassign
func (h *ResourceHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.assign(w, r, 0)
}

// assign routes assignment through the generic update accessor. A zero
// userID clears the assignment.
func (h *ResourceHandler) assign(w http.ResponseWriter, r *http.Request, userID int) {
	kind, client, ok := h.prepare(w, r)
	if !ok {
		return
	}
	switch kind {
	case models.KindUserStory, models.KindTask, models.KindIssue, models.KindEpic:
	default:
		httpx.WriteBadRequest(w, fmt.Sprintf("resource kind %q is not assignable", kind))
		return
	}
	id, err := resourceID(r)
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	var assignee any
	if userID > 0 {
		assignee = userID
	}
	resource, err := client.UpdateResource(r.Context(), kind, id, map[string]any{"assigned_to": assignee})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resource)
}

// prepare resolves the kind from the route and the client handle from the
// session header. Validation failures are already written to w when ok is
// false.
func (h *ResourceHandler) prepare(w http.ResponseWriter, r *http.Request) (models.ResourceKind, taiga.API, bool) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return "", nil, false
	}

	sessionID := sessionFrom(r)
	if sessionID == "" {
		httpx.WriteUnauthorized(w, sessionHeader+" header is required")
		return "", nil, false
	}
	client, err := h.manager.Validate(sessionID)
	if err != nil {
		writeDomainError(w, err)
		return "", nil, false
	}
	return kind, client, true
}

func resourceID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

func buildCreateFields(kind models.ResourceKind, req *CreateResourceRequest) (map[string]any, error) {
	fields, err := whitelisted(kind, req.Fields)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}

	switch kind {
	case models.KindProject, models.KindMilestone:
		if req.Name == "" {
			return nil, fmt.Errorf("name is required for %s", kind)
		}
		fields["name"] = req.Name
	case models.KindWikiPage:
		if req.Slug == "" {
			return nil, fmt.Errorf("slug is required for %s", kind)
		}
		fields["slug"] = req.Slug
	default:
		if req.Subject == "" {
			return nil, fmt.Errorf("subject is required for %s", kind)
		}
		fields["subject"] = req.Subject
	}
	return fields, nil
}

func buildUpdateFields(kind models.ResourceKind, req *UpdateResourceRequest) (map[string]any, error) {
	fields, err := whitelisted(kind, req.Fields)
	if err != nil {
		return nil, err
	}
	if req.Subject != "" {
		fields["subject"] = req.Subject
	}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields provided for update")
	}
	return fields, nil
}

// whitelisted copies fields after rejecting anything outside the kind's
// allowed set.
func whitelisted(kind models.ResourceKind, fields map[string]any) (map[string]any, error) {
	allowed := allowedFields[kind]
	out := make(map[string]any, len(fields)+2)
	for name, value := range fields {
		if !allowed[name] {
			return nil, fmt.Errorf("field %q is not allowed for %s", name, kind)
		}
		out[name] = value
	}
	return out, nil
}
