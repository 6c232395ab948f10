package taiga

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/pkg/logger"
)

// API is the accessor contract an authenticated client handle satisfies.
// There is a single entry point per verb; the per-kind call conventions are
// normalized inside the implementation so callers never special-case a
// resource kind.
type API interface {
	GetResource(ctx context.Context, kind models.ResourceKind, id int) (models.Resource, error)
	ListResources(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error)
	CreateResource(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error)
	UpdateResource(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error)
	DeleteResource(ctx context.Context, kind models.ResourceKind, id int) error

	// ListMetadata lists a project's value set for one metadata kind
	// (statuses, priorities, severities, types).
	ListMetadata(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error)

	GetProjectBySlug(ctx context.Context, slug string) (models.Resource, error)
	ListMembers(ctx context.Context, projectID int) ([]models.Resource, error)
	InviteMember(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error)
	Me(ctx context.Context) (models.Resource, error)

	// Close releases the handle. A closed handle rejects every call with
	// models.ErrUnauthorized. Close performs no network I/O.
	Close()
}

// Client is an authenticated handle to one Taiga instance. It is produced by
// Gateway.Authenticate and owned exclusively by the session that holds it.
type Client struct {
	hc      *http.Client
	host    string
	token   string
	timeout time.Duration
	retries int
	closed  atomic.Bool
	logger  *slog.Logger
	audit   *logger.AuditLogger
}

var _ API = (*Client)(nil)

// Close invalidates the handle. The shared transport stays untouched; other
// sessions keep their pooled connections.
func (c *Client) Close() {
	c.closed.Store(true)
}

// GetResource fetches one resource by numeric identifier.
func (c *Client) GetResource(ctx context.Context, kind models.ResourceKind, id int) (models.Resource, error) {
	ep, err := endpointFor(kind)
	if err != nil {
		return nil, err
	}

	var out models.Resource
	err = c.do(ctx, http.MethodGet, ep.path+"/"+strconv.Itoa(id), nil, nil, &out)
	c.auditAccess("get", string(kind), id, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListResources lists resources of one kind, scoped to a project where the
// kind requires it. Extra filters pass through as query parameters.
func (c *Client) ListResources(ctx context.Context, kind models.ResourceKind, projectID int, filters url.Values) ([]models.Resource, error) {
	ep, err := endpointFor(kind)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, vs := range filters {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if ep.listScoped {
		if projectID <= 0 {
			return nil, fmt.Errorf("%w: listing %s requires a project scope", models.ErrBadRequest, kind)
		}
		query.Set(ep.scopeParam, strconv.Itoa(projectID))
	}

	var out []models.Resource
	err = c.do(ctx, http.MethodGet, ep.path, query, nil, &out)
	c.auditAccess("list", string(kind), projectID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateResource creates a resource of one kind. Non-project kinds are
// created inside the given project scope.
func (c *Client) CreateResource(ctx context.Context, kind models.ResourceKind, projectID int, fields map[string]any) (models.Resource, error) {
	ep, err := endpointFor(kind)
	if err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	if kind != models.KindProject {
		if projectID <= 0 {
			return nil, fmt.Errorf("%w: creating %s requires a project scope", models.ErrBadRequest, kind)
		}
		payload["project"] = projectID
	}

	var out models.Resource
	err = c.do(ctx, http.MethodPost, ep.path, nil, payload, &out)
	c.auditAccess("create", string(kind), projectID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateResource applies a partial update. Versioned kinds are fetched first
// so the patch carries Taiga's optimistic-concurrency version.
func (c *Client) UpdateResource(ctx context.Context, kind models.ResourceKind, id int, fields map[string]any) (models.Resource, error) {
	ep, err := endpointFor(kind)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return c.GetResource(ctx, kind, id)
	}

	payload := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	if ep.versioned {
		current, err := c.GetResource(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		version, ok := current.Version()
		if !ok {
			return nil, fmt.Errorf("%w: could not determine version for %s %d", models.ErrBackend, kind, id)
		}
		payload["version"] = version
	}

	var out models.Resource
	err = c.do(ctx, http.MethodPatch, ep.path+"/"+strconv.Itoa(id), nil, payload, &out)
	c.auditAccess("update", string(kind), id, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteResource permanently deletes a resource.
func (c *Client) DeleteResource(ctx context.Context, kind models.ResourceKind, id int) error {
	ep, err := endpointFor(kind)
	if err != nil {
		return err
	}

	err = c.do(ctx, http.MethodDelete, ep.path+"/"+strconv.Itoa(id), nil, nil, nil)
	c.auditAccess("delete", string(kind), id, err)
	return err
}

// ListMetadata lists the project's value set for one metadata kind.
func (c *Client) ListMetadata(ctx context.Context, meta models.MetaKind, projectID int) ([]models.Resource, error) {
	path, err := metaEndpointFor(meta)
	if err != nil {
		return nil, err
	}
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: listing %s requires a project scope", models.ErrBadRequest, meta)
	}

	query := url.Values{"project": {strconv.Itoa(projectID)}}
	var out []models.Resource
	err = c.do(ctx, http.MethodGet, path, query, nil, &out)
	c.auditAccess("list_metadata", string(meta), projectID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProjectBySlug resolves a project through its URL-safe slug. Taiga
// exposes this as a dedicated endpoint rather than a filter.
func (c *Client) GetProjectBySlug(ctx context.Context, slug string) (models.Resource, error) {
	query := url.Values{"slug": {slug}}
	var out models.Resource
	err := c.do(ctx, http.MethodGet, "projects/by_slug", query, nil, &out)
	c.auditAccess("get_by_slug", string(models.KindProject), 0, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMembers lists the memberships of a project.
func (c *Client) ListMembers(ctx context.Context, projectID int) ([]models.Resource, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: listing members requires a project scope", models.ErrBadRequest)
	}
	query := url.Values{"project": {strconv.Itoa(projectID)}}
	var out []models.Resource
	err := c.do(ctx, http.MethodGet, "memberships", query, nil, &out)
	c.auditAccess("list_members", string(models.KindProject), projectID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InviteMember invites a user to a project by email with the given role.
func (c *Client) InviteMember(ctx context.Context, projectID int, email string, roleID int) (models.Resource, error) {
	payload := map[string]any{
		"project":  projectID,
		"role":     roleID,
		"username": email,
	}
	var out models.Resource
	err := c.do(ctx, http.MethodPost, "memberships", nil, payload, &out)
	c.auditAccess("invite_member", string(models.KindProject), projectID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the authenticated user's own record. Used by the session
// status endpoint to confirm the token is still honored.
func (c *Client) Me(ctx context.Context) (models.Resource, error) {
	var out models.Resource
	err := c.do(ctx, http.MethodGet, "users/me", nil, nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// do issues one API request and funnels every backend failure into the
// bridge's error taxonomy. Idempotent reads are retried with bounded
// exponential backoff; writes surface immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	if c.closed.Load() {
		return models.ErrUnauthorized
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encoding request body: %v", models.ErrBackend, err)
		}
	}

	endpoint := c.host + "/api/v1/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempt := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var reader *bytes.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: building request: %v", models.ErrBackend, err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			terr := translateTransportError(err)
			if errors.Is(terr, models.ErrTimeout) {
				// Timeouts surface distinctly so callers choose the
				// retry policy themselves.
				return backoff.Permanent(terr)
			}
			return terr
		}
		defer resp.Body.Close()

		if err := translateStatus(resp.StatusCode); err != nil {
			if resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("%w: decoding response: %v", models.ErrBackend, err))
			}
		}
		return nil
	}

	if method == http.MethodGet && c.retries > 0 {
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)), ctx)
		return backoff.Retry(attempt, bo)
	}

	err := attempt()
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// translateStatus maps an HTTP status to the error taxonomy. A nil return
// means the status is a success.
func translateStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return models.ErrUnauthorized
	case status == http.StatusForbidden:
		return models.ErrForbidden
	case status == http.StatusNotFound:
		return models.ErrNotFound
	default:
		return fmt.Errorf("%w: backend returned status %d", models.ErrBackend, status)
	}
}

// translateTransportError maps transport-level failures, keeping timeouts
// distinct from general backend errors.
func translateTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrBackend, err)
}

func (c *Client) auditAccess(op, kind string, id int, err error) {
	event := logger.AuditEvent{
		EventType:    op,
		ResourceKind: kind,
		ResourceID:   id,
		Success:      err == nil,
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	c.audit.LogResourceAccess(event)
}
