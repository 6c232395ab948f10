package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Identity      string
	SessionID     string
	ResourceKind  string
	ResourceID    int
	Success       bool
	FailureReason string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login, logout, and lockout events. Credentials never
// appear here; callers pass identity keys only.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Identity != "" {
		attrs = append(attrs, slog.String("identity", event.Identity))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", TruncateSessionID(event.SessionID)))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	al.log(event.Success, attrs)
}

// LogResourceAccess logs a resource-access attempt and its outcome.
func (al *AuditLogger) LogResourceAccess(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "resource"),
		slog.String("event_type", event.EventType),
		slog.String("resource_kind", event.ResourceKind),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ResourceID != 0 {
		attrs = append(attrs, slog.Int("resource_id", event.ResourceID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	al.log(event.Success, attrs)
}

func (al *AuditLogger) log(success bool, attrs []slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
