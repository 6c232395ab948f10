package handlers_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigabridge/taigabridge/internal/handlers"
	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/taiga"
)

func validatingManager(client taiga.API) *handlers.MockSessionManager {
	return &handlers.MockSessionManager{
		ValidateFunc: func(sessionID string) (taiga.API, error) {
			if sessionID != "session-abc" {
				return nil, models.ErrUnauthorized
			}
			return client, nil
		},
	}
}

func TestResourceList_ScopedByProject(t *testing.T) {
	client := &handlers.MockBackendClient{
		ListResourcesFunc: func(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error) {
			assert.Equal(t, models.KindUserStory, kind)
			assert.Equal(t, 7, projectID)
			assert.Equal(t, "3", filters.Get("status"))
			assert.Empty(t, filters.Get("project"), "scope must not leak into filters")
			return []models.Resource{{"id": float64(1)}, {"id": float64(2)}}, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/user_story?project=7&status=3", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "user_story"})

	w := httptest.NewRecorder()
	handler.List(w, req)

	var resp []models.Resource
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp, 2)
}

func TestResourceList_EmptyResultIsEmptyArray(t *testing.T) {
	client := &handlers.MockBackendClient{
		ListResourcesFunc: func(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error) {
			return nil, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/project", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "project"})

	w := httptest.NewRecorder()
	handler.List(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestResourceList_BadProjectParam(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/task?project=zero", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "task"})

	w := httptest.NewRecorder()
	handler.List(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResourceGet_UnknownKind(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/sprint/1", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "sprint", "id": "1"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResourceGet_MissingSession(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/task/1", nil)
	req = handlers.WithURLParams(req, map[string]string{"kind": "task", "id": "1"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestResourceGet_ExpiredSession(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/task/1", nil)
	req = handlers.WithSession(req, "stale-session")
	req = handlers.WithURLParams(req, map[string]string{"kind": "task", "id": "1"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestResourceGet_NotFoundPassesThrough(t *testing.T) {
	client := &handlers.MockBackendClient{
		GetResourceFunc: func(ctx context.Context, kind models.ResourceKind, id int) (models.Resource, error) {
			return nil, models.ErrNotFound
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "GET", "/api/v1/issue/99", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "issue", "id": "99"})

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestResourceGet_BadID(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	for _, raw := range []string{"abc", "0", "-5"} {
		req := handlers.NewTestRequest(t, "GET", "/api/v1/task/"+raw, nil)
		req = handlers.WithSession(req, "session-abc")
		req = handlers.WithURLParams(req, map[string]string{"kind": "task", "id": raw})

		w := httptest.NewRecorder()
		handler.Get(w, req)

		handlers.AssertErrorResponse(t, w, 400, "bad_request")
	}
}

func TestResourceCreate_Task(t *testing.T) {
	client := &handlers.MockBackendClient{
		CreateResourceFunc: func(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error) {
			assert.Equal(t, models.KindTask, kind)
			assert.Equal(t, 7, projectID)
			assert.Equal(t, "write release notes", fields["subject"])
			assert.Equal(t, float64(42), fields["user_story"])
			return models.Resource{"id": float64(10)}, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/task", handlers.CreateResourceRequest{
		ProjectID: 7,
		Subject:   "write release notes",
		Fields:    map[string]any{"user_story": 42},
	})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "task"})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	var resp models.Resource
	handlers.AssertJSONResponse(t, w, 201, &resp)
	id, _ := resp.ID()
	assert.Equal(t, 10, id)
}

func TestResourceCreate_TitleFieldPerKind(t *testing.T) {
	cases := []struct {
		kind models.ResourceKind
		req  handlers.CreateResourceRequest
		want string
	}{
		{models.KindProject, handlers.CreateResourceRequest{Name: "Bridge"}, "name"},
		{models.KindMilestone, handlers.CreateResourceRequest{ProjectID: 7, Name: "Sprint 1"}, "name"},
		{models.KindWikiPage, handlers.CreateResourceRequest{ProjectID: 7, Slug: "home"}, "slug"},
		{models.KindIssue, handlers.CreateResourceRequest{ProjectID: 7, Subject: "crash on save"}, "subject"},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			client := &handlers.MockBackendClient{
				CreateResourceFunc: func(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error) {
					assert.Contains(t, fields, tc.want)
					return models.Resource{"id": float64(1)}, nil
				},
			}
			handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

			req := handlers.NewTestRequest(t, "POST", "/api/v1/"+string(tc.kind), tc.req)
			req = handlers.WithSession(req, "session-abc")
			req = handlers.WithURLParams(req, map[string]string{"kind": string(tc.kind)})

			w := httptest.NewRecorder()
			handler.Create(w, req)
			assert.Equal(t, 201, w.Code)
		})
	}
}

func TestResourceCreate_MissingTitleField(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/user_story", handlers.CreateResourceRequest{ProjectID: 7})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "user_story"})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResourceCreate_RejectsUnknownField(t *testing.T) {
	client := &handlers.MockBackendClient{
		CreateResourceFunc: func(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error) {
			t.Fatal("backend must not see a rejected payload")
			return nil, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/user_story", handlers.CreateResourceRequest{
		ProjectID: 7,
		Subject:   "valid subject",
		Fields:    map[string]any{"severity": 5},
	})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "user_story"})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResourceUpdate_Subject(t *testing.T) {
	client := &handlers.MockBackendClient{
		UpdateResourceFunc: func(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error) {
			assert.Equal(t, models.KindUserStory, kind)
			assert.Equal(t, 42, id)
			assert.Equal(t, "updated subject", fields["subject"])
			return models.Resource{"id": float64(42)}, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "PATCH", "/api/v1/user_story/42", handlers.UpdateResourceRequest{Subject: "updated subject"})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "user_story", "id": "42"})

	w := httptest.NewRecorder()
	handler.Update(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestResourceUpdate_NoFields(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "PATCH", "/api/v1/user_story/42", handlers.UpdateResourceRequest{})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "user_story", "id": "42"})

	w := httptest.NewRecorder()
	handler.Update(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResourceDelete(t *testing.T) {
	client := &handlers.MockBackendClient{
		DeleteResourceFunc: func(ctx context.Context, kind models.ResourceKind, id int) error {
			assert.Equal(t, models.KindMilestone, kind)
			assert.Equal(t, 3, id)
			return nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "DELETE", "/api/v1/milestone/3", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "milestone", "id": "3"})

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	var resp handlers.DeleteResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "deleted", resp.Status)
	assert.Equal(t, models.KindMilestone, resp.Kind)
	assert.Equal(t, 3, resp.ID)
}

func TestResourceAssign(t *testing.T) {
	client := &handlers.MockBackendClient{
		UpdateResourceFunc: func(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error) {
			assert.Equal(t, 5, fields["assigned_to"])
			return models.Resource{"id": float64(42)}, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/issue/42/assign", handlers.AssignRequest{UserID: 5})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "issue", "id": "42"})

	w := httptest.NewRecorder()
	handler.Assign(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestResourceUnassign_ClearsAssignment(t *testing.T) {
	client := &handlers.MockBackendClient{
		UpdateResourceFunc: func(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error) {
			assert.Contains(t, fields, "assigned_to")
			assert.Nil(t, fields["assigned_to"])
			return models.Resource{"id": float64(42)}, nil
		},
	}
	handler := handlers.NewResourceHandler(validatingManager(client), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/task/42/unassign", nil)
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "task", "id": "42"})

	w := httptest.NewRecorder()
	handler.Unassign(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestResourceAssign_UnassignableKind(t *testing.T) {
	handler := handlers.NewResourceHandler(validatingManager(&handlers.MockBackendClient{}), testLogger())

	req := handlers.NewTestRequest(t, "POST", "/api/v1/wiki_page/42/assign", handlers.AssignRequest{UserID: 5})
	req = handlers.WithSession(req, "session-abc")
	req = handlers.WithURLParams(req, map[string]string{"kind": "wiki_page", "id": "42"})

	w := httptest.NewRecorder()
	handler.Assign(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
