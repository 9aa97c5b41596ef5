// Package session owns the lifetime of the authentication token: restoring it
// at startup, establishing it after login, clearing it on logout, and
// attaching it to outgoing requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"tasker/internal/service"
)

// State is the authentication state of the running client.
type State int

const (
	// Unauthenticated means no token is held. Task calls must not be attempted.
	Unauthenticated State = iota

	// Authenticated means a token is held and attached to every task call.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Claims is the subset of the token payload shown to the user.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Manager is the single source of truth for "is the user authenticated" and
// the only component that reads or writes the persisted token.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu        sync.RWMutex
	token     *oauth2.Token // nil when Unauthenticated
	listeners []func(State)
}

// NewManager creates an Unauthenticated manager backed by store.
// Call Restore once at startup to pick up a persisted token.
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, logger: logger}
}

// Restore reads the persisted token. It never fails: any read or decode
// error is logged and treated as "no session".
func (m *Manager) Restore(ctx context.Context) State {
	raw, err := m.store.Get(ctx, TokenKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Debug("session restore failed", "error", err)
		}
		m.set(nil)
		return Unauthenticated
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil || token.AccessToken == "" {
		m.logger.Debug("session restore: unreadable token", "error", err)
		m.set(nil)
		return Unauthenticated
	}

	m.logger.Debug("session restored")
	m.set(&token)
	return Authenticated
}

// Establish persists accessToken and marks the session Authenticated.
// Any previous token is replaced. If persisting fails the session is left
// as it was and the error wraps service.ErrStorage.
func (m *Manager) Establish(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: empty access token", service.ErrAuth)
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if claims, err := parseClaims(accessToken); err == nil {
		token.Expiry = claims.ExpiresAt
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("%w: encode token: %v", service.ErrStorage, err)
	}
	if err := m.store.Set(ctx, TokenKey, string(data)); err != nil {
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}

	m.logger.Debug("session established")
	m.transition(token)
	return nil
}

// Clear removes the persisted token and marks the session Unauthenticated.
// It is safe to call when no token exists. If removal fails the session is
// left as it was and the error wraps service.ErrStorage.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("%w: %w", service.ErrStorage, err)
	}

	m.logger.Debug("session cleared")
	m.transition(nil)
	return nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return Unauthenticated
	}
	return Authenticated
}

// Token implements oauth2.TokenSource. It returns service.ErrAuth when
// the session is Unauthenticated.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return nil, fmt.Errorf("%w: not logged in", service.ErrAuth)
	}
	t := *m.token
	return &t, nil
}

// Attach returns req with an Authorization header when a token is held.
// The returned request is a clone; req itself is never modified.
// Without a token req is returned unchanged.
func (m *Manager) Attach(req *http.Request) *http.Request {
	token, err := m.Token()
	if err != nil {
		return req
	}
	out := req.Clone(req.Context())
	token.SetAuthHeader(out)
	return out
}

// Claims decodes the token payload without verifying its signature.
// Tokens that are not JWTs yield an error.
func (m *Manager) Claims() (Claims, error) {
	token, err := m.Token()
	if err != nil {
		return Claims{}, err
	}
	return parseClaims(token.AccessToken)
}

// Subscribe registers fn to be called after every Establish or Clear.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) set(token *oauth2.Token) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

// transition swaps the token and notifies listeners outside the lock.
func (m *Manager) transition(token *oauth2.Token) {
	m.mu.Lock()
	m.token = token
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	state := Unauthenticated
	if token != nil {
		state = Authenticated
	}
	for _, fn := range listeners {
		fn(state)
	}
}

func parseClaims(accessToken string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &rc); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}
