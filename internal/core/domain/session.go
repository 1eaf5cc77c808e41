package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix is the prefix for realtime session IDs.
const SessionIDPrefix = "pxss-"

// Session is a live realtime connection. It owns no canvas data.
type Session struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NewSession creates a session stamped with the given time.
func NewSession(remoteAddr string, now time.Time) (*Session, error) {
	id, err := GenerateSessionID(now)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, RemoteAddr: remoteAddr, ConnectedAt: now}, nil
}

// GenerateSessionID generates a new session ID.
// Format: pxss-{ulid_lowercase}.
func GenerateSessionID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID reports whether id has the session ID format.
func IsValidSessionID(id string) bool {
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}
