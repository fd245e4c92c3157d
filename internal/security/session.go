package security

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// GenerateRequestID creates a new UUID for request correlation
func GenerateRequestID() string {
	return uuid.New().String()
}

// GetClientIP extracts the client IP from the request. Only the first
// X-Forwarded-For hop is used.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
