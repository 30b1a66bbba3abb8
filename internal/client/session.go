// Package client is the terminal side of twofa: a session holding the
// signed-in user's tokens and an HTTP client for the API.
package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrNotAuthenticated is returned when a call needs a signed-in session.
var ErrNotAuthenticated = errors.New("client: not logged in")

// Tokens is what a login hands back and what the store keeps on disk.
type Tokens struct {
	Username        string    `json:"username"`
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
}

func (t Tokens) empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// TokenStore persists tokens between runs.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// Session is the explicit replacement for process-wide login state. Create
// one with NewSession, call Init once, then share it with whatever needs the
// token. It is safe for concurrent use.
type Session struct {
	store TokenStore

	mu       sync.RWMutex
	tokens   Tokens
	teardown []func(context.Context) error
}

func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// Init loads the persisted token, if any. A missing token is not an error.
func (s *Session) Init(ctx context.Context) error {
	t, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoTokens) {
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()

	return nil
}

// Begin stores freshly issued tokens in memory and on disk.
func (s *Session) Begin(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, t); err != nil {
		return err
	}
	s.tokens = t

	return nil
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Username
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.tokens.empty()
}

// OnTeardown registers fn to run when the session ends. Caches derived from
// the signed-in user register here so they never outlive the token.
func (s *Session) OnTeardown(fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown = append(s.teardown, fn)
}

// Teardown forgets the token, removes it from disk and runs the registered
// hooks newest first. Hooks stay registered so the session can be reused
// after the next Begin.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	hooks := slices.Clone(s.teardown)
	s.mu.Unlock()

	errs := []error{s.store.Clear(ctx)}
	for _, fn := range slices.Backward(hooks) {
		errs = append(errs, fn(ctx))
	}

	return errors.Join(errs...)
}
