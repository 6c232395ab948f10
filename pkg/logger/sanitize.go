package logger

import (
	"fmt"
	"strings"
)

// TruncateSessionID shortens a session identifier for safe logging. The
// first eight characters are enough to correlate log lines without giving
// away a usable token.
func TruncateSessionID(sessionID string) string {
	if sessionID == "" {
		return "unknown"
	}
	if len(sessionID) <= 8 {
		return sessionID + "..."
	}
	return sessionID[:8] + "..."
}

// SanitizePassword returns a safe representation of a password for logging.
// The actual value is never emitted, only its length.
func SanitizePassword(password string) string {
	if password == "" {
		return "***"
	}
	return fmt.Sprintf("***[%d chars]", len(password))
}

// SanitizeQueryString reports whether a raw query string carries sensitive
// parameters and should be redacted wholesale from request logs.
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{"password", "token", "session_id", "auth"}
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param+"=") {
			return true
		}
	}
	return false
}

// SanitizeURL masks inline credentials in a URL, if present.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return "unknown"
	}
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL
	}
	_, host, ok := strings.Cut(rest, "@")
	if !ok {
		return rawURL
	}
	return scheme + "://***:***@" + host
}
