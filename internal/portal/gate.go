package portal

import (
	"context"
	"errors"
	"net/http"
	"time"

	"timetabledocs/internal/client"
	"timetabledocs/internal/model"
)

// ErrInvalidCredentials never says which of the two fields was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator is the server-side credential check.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.AdminToken, error)
}

// LoginForm is the username/password entry state.
type LoginForm struct {
	Username string
	Password string
}

// Reset empties both fields.
func (f *LoginForm) Reset() {
	f.Username = ""
	f.Password = ""
}

// Gate unlocks the admin view. The credential comparison happens on the server, which
// answers with a signed expiring token; the gate only keeps and presents that token.
type Gate struct {
	Form LoginForm

	auth  Authenticator
	store SessionStore
	now   func() time.Time
}

func NewGate(auth Authenticator, store SessionStore) *Gate {
	return &Gate{auth: auth, store: store, now: time.Now}
}

// Login submits the form. On success the session is stored and returned; on a credential
// mismatch nothing is stored and ErrInvalidCredentials is returned.
func (g *Gate) Login(ctx context.Context) (*Session, error) {
	tok, err := g.auth.Login(ctx, g.Form.Username, g.Form.Password)
	if err != nil {
		var se *client.ServerError
		if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	s := &Session{
		Username:   g.Form.Username,
		Department: tok.Department,
		Token:      tok.Token,
		ExpiresAt:  tok.ExpiresAt,
	}
	if err := g.store.Save(s); err != nil {
		return nil, err
	}
	g.Form.Password = ""
	return s, nil
}

// Current returns the stored session when it is still valid. An expired session is cleared.
func (g *Gate) Current() (*Session, bool) {
	s, err := g.store.Load()
	if err != nil {
		return nil, false
	}
	if !s.Valid(g.now()) {
		_ = g.store.Clear()
		return nil, false
	}
	return s, true
}

// Logout clears the session regardless of prior state and resets the form.
func (g *Gate) Logout() error {
	g.Form.Reset()
	return g.store.Clear()
}
