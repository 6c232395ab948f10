package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigabridge/taigabridge/internal/handlers"
	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/sessions"
)

func TestProjectGetBySlug(t *testing.T) {
	client := &handlers.MockBackendClient{
		GetProjectBySlugFunc: func(ctx context.Context, slug string) (models.Resource, error) {
			assert.Equal(t, "taiga-bridge", slug)
			return models.Resource{"id": float64(7), "slug": "taiga-bridge"}, nil
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/by-slug/taiga-bridge", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"slug": "taiga-bridge"})

	w := httptest.NewRecorder()
	handler.GetBySlug(w, req)

	var resp models.Resource
	handlers.AssertJSONResponse(t, w, 200, &resp)
	id, _ := resp.ID()
	assert.Equal(t, 7, id)
}

func TestProjectGetBySlug_Unknown(t *testing.T) {
	client := &handlers.MockBackendClient{
		GetProjectBySlugFunc: func(ctx context.Context, slug string) (models.Resource, error) {
			return nil, models.ErrNotFound
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/by-slug/no-such-project", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"slug": "no-such-project"})

	w := httptest.NewRecorder()
	handler.GetBySlug(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestProjectMembers(t *testing.T) {
	client := &handlers.MockBackendClient{
		ListMembersFunc: func(ctx context.Context, projectID int) ([]models.Resource, error) {
			assert.Equal(t, 7, projectID)
			return []models.Resource{{"id": float64(1), "role_name": "Product Owner"}}, nil
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/7/members", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7"})

	w := httptest.NewRecorder()
	handler.Members(w, req)

	var resp []models.Resource
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp, 1)
}

func TestProjectMembers_BadID(t *testing.T) {
	handler := handlers.NewProjectHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/abc/members", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "abc"})

	w := httptest.NewRecorder()
	handler.Members(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestProjectInvite(t *testing.T) {
	client := &handlers.MockBackendClient{
		InviteMemberFunc: func(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error) {
			assert.Equal(t, 7, projectID)
			assert.Equal(t, "new.dev@example.com", email)
			assert.Equal(t, 3, roleID)
			return models.Resource{"id": float64(12)}, nil
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/project/7/invite", handlers.InviteRequest{
		Email:  "new.dev@example.com",
		RoleID: 3,
	})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7"})

	w := httptest.NewRecorder()
	handler.Invite(w, req)

	var resp models.Resource
	handlers.AssertJSONResponse(t, w, 201, &resp)
	id, _ := resp.ID()
	assert.Equal(t, 12, id)
}

func TestProjectInvite_InvalidEmail(t *testing.T) {
	handler := handlers.NewProjectHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/project/7/invite", handlers.InviteRequest{
		Email:  "not-an-email",
		RoleID: 3,
	})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7"})

	w := httptest.NewRecorder()
	handler.Invite(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestProjectInvite_ForbiddenPassesThrough(t *testing.T) {
	client := &handlers.MockBackendClient{
		InviteMemberFunc: func(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error) {
			return nil, models.ErrForbidden
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/project/7/invite", handlers.InviteRequest{
		Email:  "new.dev@example.com",
		RoleID: 3,
	})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7"})

	w := httptest.NewRecorder()
	handler.Invite(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestProjectMetadata(t *testing.T) {
	client := &handlers.MockBackendClient{
		ListMetadataFunc: func(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error) {
			assert.Equal(t, models.MetaIssuePriority, meta)
			assert.Equal(t, 7, projectID)
			return []models.Resource{{"id": float64(1), "name": "High"}}, nil
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/7/meta/issue_priority", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7", "meta": "issue_priority"})

	w := httptest.NewRecorder()
	handler.Metadata(w, req)

	var resp []models.Resource
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp, 1)
}

func TestProjectMetadata_EmptyResultIsEmptyArray(t *testing.T) {
	client := &handlers.MockBackendClient{
		ListMetadataFunc: func(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error) {
			return nil, nil
		},
	}
	handler := handlers.NewProjectHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/7/meta/user_story_status", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7", "meta": "user_story_status"})

	w := httptest.NewRecorder()
	handler.Metadata(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestProjectMetadata_UnknownKind(t *testing.T) {
	handler := handlers.NewProjectHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project/7/meta/issue_flavor", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"id": "7", "meta": "issue_flavor"})

	w := httptest.NewRecorder()
	handler.Metadata(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestStatus_ReportsCounts(t *testing.T) {
	manager := &handlers.MockSessionManager{
		StatsFunc: func() sessions.Stats { return sessions.Stats{ActiveSessions: 3, LockedIdentities: 1} },
	}
	handler := handlers.NewStatusHandler(manager)

	req := handlers.NewTestRequest(t, "GET", "/status", nil)
	w := httptest.NewRecorder()
	handler.Status(w, req)

	var resp handlers.StatusResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.ActiveSessions)
	assert.Equal(t, 1, resp.LockedIdentities)
}
