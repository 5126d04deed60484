package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/sazonarte/frontdesk/internal/api"
)

// Authenticator is the /auth surface the manager drives.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (api.AuthTokens, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (api.AuthTokens, error)
}

// ProfileFetcher loads the user that owns the current token.
type ProfileFetcher interface {
	Me(ctx context.Context) (api.User, error)
}

const defaultLogoutTimeout = 5 * time.Second

// Manager runs the login, logout and refresh transitions against the API.
type Manager struct {
	store   *Store
	auth    Authenticator
	profile ProfileFetcher

	loginMu       sync.Mutex
	logoutTimeout time.Duration
	background    sync.WaitGroup
}

// NewManager wires store to the auth and profile endpoints.
func NewManager(store *Store, auth Authenticator, profile ProfileFetcher) *Manager {
	return &Manager{
		store:         store,
		auth:          auth,
		profile:       profile,
		logoutTimeout: defaultLogoutTimeout,
	}
}

// Store returns the managed store.
func (m *Manager) Store() *Store {
	return m.store
}

// Login exchanges creds for a token, loads the profile with it and only then
// publishes Authenticated. If any step fails the session stays Anonymous and
// the error is returned.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) (api.User, error) {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	creds.Email = strings.TrimSpace(creds.Email)
	tokens, err := m.auth.Login(ctx, creds)
	if err != nil {
		return api.User{}, err
	}

	m.store.stage(tokens.Access.Token)
	user, err := m.profile.Me(ctx)
	if err != nil {
		m.store.discard(tokens.Access.Token)
		glog.Warningf("[session] profile fetch after login failed: %v", err)
		return api.User{}, fmt.Errorf("load profile: %w", err)
	}
	if err := m.store.commit(user, tokens); err != nil {
		m.store.discard(tokens.Access.Token)
		return api.User{}, err
	}
	return user, nil
}

// Logout clears the session at once and tells the server in the background.
// The server call never blocks or undoes the local sign-out.
func (m *Manager) Logout() {
	token := m.store.Clear()
	if token == "" {
		return
	}
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.logoutTimeout)
		defer cancel()
		if err := m.auth.Logout(ctx, token); err != nil {
			glog.Warningf("[session] server logout failed: %v", err)
		}
	}()
}

// Wait blocks until background server notifications have finished.
func (m *Manager) Wait() {
	m.background.Wait()
}

// Refresh swaps the access token using the stored refresh token.
func (m *Manager) Refresh(ctx context.Context) error {
	if !m.store.Snapshot().Authenticated() {
		return ErrNotAuthenticated
	}
	tokens, err := m.auth.Refresh(ctx, m.store.RefreshToken())
	if err != nil {
		return err
	}
	if strings.TrimSpace(tokens.Access.Token) == "" {
		return fmt.Errorf("refresh: response carried no access token")
	}
	if err := m.store.replaceTokens(tokens); err != nil {
		return err
	}
	glog.Infof("[session] token refreshed")
	return nil
}

// Me reloads the profile of the logged-in user.
func (m *Manager) Me(ctx context.Context) (api.User, error) {
	if !m.store.Snapshot().Authenticated() {
		return api.User{}, ErrNotAuthenticated
	}
	return m.profile.Me(ctx)
}
