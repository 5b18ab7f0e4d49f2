package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/yangjihun/FM-COMMIT/internal/models"
)

var (
	ErrLoginRequired = errors.New("login required")
	ErrAdminRequired = errors.New("admin permission required")
)

// Session holds the current user and token. It starts signed out; call
// Restore to pick up a saved token.
type Session struct {
	api   *API
	store TokenStore

	mu        sync.RWMutex
	user      *models.User
	token     string
	listeners []func(*models.User)
}

func NewSession(api *API, store TokenStore) *Session {
	return &Session{api: api, store: store}
}

// OnChange registers fn to be called with the new user (nil when signed
// out) after every sign-in, sign-out or restore.
func (s *Session) OnChange(fn func(*models.User)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) set(u *models.User, token string) {
	s.mu.Lock()
	s.user, s.token = u, token
	listeners := append([]func(*models.User){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Restore loads the saved token and resolves it via /user/me. A token the
// server rejects is cleared from the store; transport errors leave it in
// place. Restore reports whether a user is signed in.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if token == "" {
		s.set(nil, "")
		return false, nil
	}
	u, err := s.api.Me(ctx, token)
	if err != nil {
		s.set(nil, "")
		switch StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false, s.store.Clear()
		}
		return false, err
	}
	s.set(u, token)
	return true, nil
}

func (s *Session) adopt(res *LoginResult) (*models.User, error) {
	if err := s.store.Save(res.Token); err != nil {
		return nil, err
	}
	s.set(res.User, res.Token)
	return s.User(), nil
}

// Login signs in with a Google ID token.
func (s *Session) Login(ctx context.Context, credential string) (*models.User, error) {
	res, err := s.api.GoogleLogin(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.adopt(res)
}

// PasswordLogin signs in with email and password.
func (s *Session) PasswordLogin(ctx context.Context, email, password string) (*models.User, error) {
	res, err := s.api.PasswordLogin(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(res)
}

// Logout revokes the token server-side and always clears local state, even
// when the server call fails; that error is still returned.
func (s *Session) Logout(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		if t, err := s.store.Load(); err == nil {
			token = t
		}
	}
	var remote error
	if token != "" {
		remote = s.api.Logout(ctx, token)
		if StatusOf(remote) == http.StatusUnauthorized {
			remote = nil
		}
	}
	s.set(nil, "")
	if err := s.store.Clear(); err != nil {
		return err
	}
	return remote
}

// Guard is the route-guard check: nil when the session may enter a page
// with the given requirement.
func (s *Session) Guard(requireAdmin bool) error {
	u := s.User()
	if u == nil {
		return ErrLoginRequired
	}
	if requireAdmin && !u.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}
