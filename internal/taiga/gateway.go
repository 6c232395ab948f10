package taiga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/pkg/logger"
)

// GatewayConfig holds the backend transport parameters supplied by
// configuration. The gateway embeds no backend host or credential defaults.
type GatewayConfig struct {
	RequestTimeout      time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	// RetryMaxAttempts bounds retries of idempotent read operations.
	RetryMaxAttempts int
	// AllowHTTP disables the HTTPS requirement for local development.
	AllowHTTP bool
}

// Gateway authenticates against Taiga instances and produces per-session
// client handles. All handles share one pooled transport; the handle itself
// carries only the host and the bearer token.
type Gateway struct {
	config GatewayConfig
	hc     *http.Client
	logger *slog.Logger
	audit  *logger.AuditLogger
}

// NewGateway creates a Gateway with a pooled transport sized from config.
func NewGateway(config GatewayConfig, log *slog.Logger, audit *logger.AuditLogger) *Gateway {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}
	return &Gateway{
		config: config,
		hc:     &http.Client{Transport: transport},
		logger: log,
		audit:  audit,
	}
}

// authRequest is the Taiga normal-auth payload.
type authRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AuthToken string `json:"auth_token"`
}

// Authenticate exchanges credentials for an authenticated client handle.
// Credentials exist only for the duration of the call; the returned handle
// carries the bearer token, never the password. Hosts must use HTTPS unless
// the AllowHTTP override is set.
func (g *Gateway) Authenticate(ctx context.Context, host, username, password string) (API, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, fmt.Errorf("%w: backend host is required", models.ErrBadRequest)
	}
	if !strings.HasPrefix(host, "https://") {
		if !g.config.AllowHTTP {
			return nil, fmt.Errorf("%w: backend host must use https", models.ErrBadRequest)
		}
		g.logger.Warn("connecting to backend over plain http",
			slog.String("host", logger.SanitizeURL(host)))
	}

	body, err := json.Marshal(authRequest{Type: "normal", Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding auth request: %v", models.ErrBackend, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, host+"/api/v1/auth", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building auth request: %v", models.ErrBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, translateTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		// Taiga answers 400 for unknown users and 401 for bad passwords.
		// Both collapse into one generic rejection so callers cannot
		// enumerate usernames.
		return nil, models.ErrAuthFailed
	default:
		return nil, fmt.Errorf("%w: auth returned status %d", models.ErrBackend, resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("%w: decoding auth response: %v", models.ErrBackend, err)
	}
	if auth.AuthToken == "" {
		return nil, fmt.Errorf("%w: auth response carried no token", models.ErrBackend)
	}

	g.logger.Info("backend authentication succeeded",
		slog.String("host", logger.SanitizeURL(host)),
		slog.String("username", username))

	return &Client{
		hc:      g.hc,
		host:    host,
		token:   auth.AuthToken,
		timeout: g.config.RequestTimeout,
		retries: g.config.RetryMaxAttempts,
		logger:  g.logger,
		audit:   g.audit,
	}, nil
}
