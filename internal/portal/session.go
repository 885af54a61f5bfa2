package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is an unlocked admin view. The token is the signed credential presented to the API.
// Department is the department the server bound to the token.
type Session struct {
	Username   string    `json:"username"`
	Department string    `json:"department,omitempty"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Valid reports whether the session carries a token that has not yet expired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom returns the session on ctx, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return s, ok && s != nil
}

func tokenFrom(ctx context.Context) string {
	if s, ok := SessionFrom(ctx); ok {
		return s.Token
	}
	return ""
}

// SessionStore keeps the session between CLI invocations.
type SessionStore interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("no admin session")

// FileStore persists the session as a small JSON document readable only by the owner.
type FileStore struct {
	Path string
}

// sessionFile marks an unlocked admin view with "admin_authenticated": "true".
type sessionFile struct {
	Authenticated string `json:"admin_authenticated"`
	Session
}

// DefaultSessionPath is <user config dir>/timetabledocs/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "timetabledocs", "session.json"), nil
}

func (f FileStore) Load() (*Session, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sf.Authenticated != "true" {
		return nil, ErrNoSession
	}
	s := sf.Session
	return &s, nil
}

func (f FileStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.Marshal(sessionFile{Authenticated: "true", Session: *s})
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is not an error.
func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
