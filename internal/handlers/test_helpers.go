package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/sessions"
	"github.com/taigabridge/taigabridge/internal/taiga"
)

// MockSessionManager implements SessionManager for testing
type MockSessionManager struct {
	LoginFunc    func(ctx context.Context, host, username, password string) (string, error)
	ValidateFunc func(sessionID string) (taiga.API, error)
	LogoutFunc   func(sessionID string)
	StatusFunc   func(sessionID string) (sessions.Session, error)
	StatsFunc    func() sessions.Stats
}

func (m *MockSessionManager) Login(ctx context.Context, host, username, password string) (string, error) {
	return m.LoginFunc(ctx, host, username, password)
}

func (m *MockSessionManager) Validate(sessionID string) (taiga.API, error) {
	return m.ValidateFunc(sessionID)
}

func (m *MockSessionManager) Logout(sessionID string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(sessionID)
	}
}

func (m *MockSessionManager) Status(sessionID string) (sessions.Session, error) {
	return m.StatusFunc(sessionID)
}

func (m *MockSessionManager) Stats() sessions.Stats {
	return m.StatsFunc()
}

// MockBackendClient implements taiga.API for testing handler dispatch
type MockBackendClient struct {
	GetResourceFunc      func(ctx context.Context, kind models.ResourceKind, id int) (models.Resource, error)
	ListResourcesFunc    func(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error)
	CreateResourceFunc   func(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error)
	UpdateResourceFunc   func(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error)
	DeleteResourceFunc   func(ctx context.Context, kind models.ResourceKind, id int) error
	ListMetadataFunc     func(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error)
	GetProjectBySlugFunc func(ctx context.Context, slug string) (models.Resource, error)
	ListMembersFunc      func(ctx context.Context, projectID int) ([]models.Resource, error)
	InviteMemberFunc     func(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error)
	MeFunc               func(ctx context.Context) (models.Resource, error)
}

func (m *MockBackendClient) GetResource(ctx context.Context, kind models.ResourceKind, id int) (models.Resource, error) {
	return m.GetResourceFunc(ctx, kind, id)
}

func (m *MockBackendClient) ListResources(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error) {
	return m.ListResourcesFunc(ctx, kind, projectID, filters)
}

func (m *MockBackendClient) CreateResource(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error) {
	return m.CreateResourceFunc(ctx, kind, projectID, fields)
}

func (m *MockBackendClient) UpdateResource(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error) {
	return m.UpdateResourceFunc(ctx, kind, id, fields)
}

func (m *MockBackendClient) DeleteResource(ctx context.Context, kind models.ResourceKind, id int) error {
	return m.DeleteResourceFunc(ctx, kind, id)
}

func (m *MockBackendClient) ListMetadata(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error) {
	return m.ListMetadataFunc(ctx, meta, projectID)
}

func (m *MockBackendClient) GetProjectBySlug(ctx context.Context, slug string) (models.Resource, error) {
	return m.GetProjectBySlugFunc(ctx, slug)
}

func (m *MockBackendClient) ListMembers(ctx context.Context, projectID int) ([]models.Resource, error) {
	return m.ListMembersFunc(ctx, projectID)
}

func (m *MockBackendClient) InviteMember(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error) {
	return m.InviteMemberFunc(ctx, projectID, email, roleID)
}

func (m *MockBackendClient) Me(ctx context.Context) (models.Resource, error) {
	return m.MeFunc(ctx)
}

func (m *MockBackendClient) Close() {}

var _ taiga.API = (*MockBackendClient)(nil)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSession attaches the session header to a request
func WithSession(req *http.Request, sessionID string) *http.Request {
	req.Header.Set(sessionHeader, sessionID)
	return req
}

// WithURLParams injects chi route parameters so handlers can be called
// without standing up a full router
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "application/json"), "unexpected content type %q", contentType)

	if target != nil {
		err := json.NewDecoder(w.Body).Decode(target)
		assert.NoError(t, err, "failed to decode response body")
	}
}

// AssertErrorResponse checks status and machine-readable error code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "response status mismatch")

	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	err := json.NewDecoder(w.Body).Decode(&resp)
	assert.NoError(t, err, "failed to decode error body")
	assert.Equal(t, expectedCode, resp.Error)
}
