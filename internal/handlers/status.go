package handlers

import (
	"net/http"

	"github.com/taigabridge/taigabridge/pkg/httpx"
)

// StatusHandler serves the health/status endpoint. The core only exposes
// counts; everything else about process health belongs to the deployment.
type StatusHandler struct {
	manager SessionManager
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(manager SessionManager) *StatusHandler {
	return &StatusHandler{manager: manager}
}

// StatusResponse reports service liveness and the session core's counters.
type StatusResponse struct {
	Status           string `json:"status"`
	ActiveSessions   int    `json:"active_sessions"`
	LockedIdentities int    `json:"locked_identities"`
}

// Status handles GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	stats := h.manager.Stats()
	httpx.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:           "ok",
		ActiveSessions:   stats.ActiveSessions,
		LockedIdentities: stats.LockedIdentities,
	})
}
