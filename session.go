package instagram

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// sessionMaxAge bounds how long a persisted session is trusted. Validity is
// purely time-based; liveness is only ever confirmed as a side effect of
// replaying the session and checking for a login redirect.
const sessionMaxAge = 24 * time.Hour

// SessionCookie is a browser cookie in the session persistence format.
// Expires is seconds since epoch, matching what the automation layer reports.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// SessionState is an authenticated browsing session: cookies plus
// client-side storage, stamped with the capture time. It is created at
// successful login and persisted immediately; it is never mutated after
// capture.
type SessionState struct {
	Cookies      []SessionCookie   `json:"cookies"`
	LocalStorage map[string]string `json:"localStorage"`
	Timestamp    int64             `json:"timestamp"`
	URL          string            `json:"url"`
}

// SessionStore persists and restores SessionState on disk.
type SessionStore struct {
	path string

	// now is replaceable for expiry tests.
	now func() time.Time
}

// NewSessionStore creates a store backed by the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path, now: time.Now}
}

// Save serializes the session to disk, creating parent directories as
// needed and overwriting any prior session.
func (s *SessionStore) Save(state *SessionState) error {
	if state.Timestamp == 0 {
		state.Timestamp = s.now().Unix()
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load returns the persisted session, or ok=false when no session exists,
// the file cannot be parsed, or the session is older than 24 hours. A
// missing or expired session is a steady-state condition, not an error, so
// Load never fails.
func (s *SessionStore) Load() (*SessionState, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false
	}

	if s.now().Sub(time.Unix(state.Timestamp, 0)) >= sessionMaxAge {
		return nil, false
	}
	return &state, true
}
