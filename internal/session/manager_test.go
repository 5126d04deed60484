package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sazonarte/frontdesk/internal/api"
)

type fakeBackend struct {
	profileStatus atomic.Int32
	logoutCalls   atomic.Int32
	logoutAuth    atomic.Value
	logoutStatus  atomic.Int32
	logoutRelease chan struct{}
	stateDuringMe atomic.Value
	authDuringMe  atomic.Value
}

func newManager(t *testing.T, backend *fakeBackend, storage Storage) (*Manager, *api.Client) {
	t.Helper()
	store := NewStore(storage)
	store.Restore()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(api.Envelope[api.AuthTokens]{Success: true, Data: api.AuthTokens{
			Access:  api.TokenInfo{Token: "access-1"},
			Refresh: api.TokenInfo{Token: "refresh-1"},
		}})
	})
	mux.HandleFunc("GET /api/v1/profile/me", func(w http.ResponseWriter, r *http.Request) {
		backend.stateDuringMe.Store(store.Snapshot().State)
		backend.authDuringMe.Store(r.Header.Get("Authorization"))
		if status := backend.profileStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			return
		}
		_ = json.NewEncoder(w).Encode(api.Envelope[api.User]{Success: true, Data: api.User{ID: "u1", Email: "ana@example.com"}})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		backend.logoutCalls.Add(1)
		backend.logoutAuth.Store(r.Header.Get("Authorization"))
		if backend.logoutRelease != nil {
			<-backend.logoutRelease
		}
		status := http.StatusServiceUnavailable
		if s := backend.logoutStatus.Load(); s != 0 {
			status = int(s)
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.Envelope[api.AuthTokens]{Success: true, Data: api.AuthTokens{
			Access: api.TokenInfo{Token: "access-2"},
		}})
	})
	mux.HandleFunc("GET /api/v1/tables", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := api.NewClient(server.URL,
		api.WithTokenSource(store),
		api.WithUnauthorizedHandler(store.Invalidate),
	)
	require.NoError(t, err)
	return NewManager(store, client.Auth(), client.Profile()), client
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestLogin_CommitsUserAndTokenTogether(t *testing.T) {
	backend := &fakeBackend{}
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)

	user, err := m.Login(ctx(t), api.Credentials{Email: " ana@example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	assert.Equal(t, Anonymous, backend.stateDuringMe.Load(), "readers must not see a half-built session")
	assert.Equal(t, "Bearer access-1", backend.authDuringMe.Load())

	snap := m.Store().Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, "access-1", snap.Token)
	stored, _ := storage.Load()
	assert.Equal(t, "access-1", stored.AuthToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
	assert.Contains(t, stored.User, "ana@example.com")
}

func TestLogin_BadCredentialsLeaveNoState(t *testing.T) {
	backend := &fakeBackend{}
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)

	_, err := m.Login(ctx(t), api.Credentials{Email: "ana@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", api.Message(err, ""))
	assert.Equal(t, Anonymous, m.Store().Snapshot().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
}

func TestLogin_ProfileFailureDiscardsToken(t *testing.T) {
	backend := &fakeBackend{}
	backend.profileStatus.Store(http.StatusInternalServerError)
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)

	_, err := m.Login(ctx(t), api.Credentials{Email: "ana@example.com", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, api.KindServer, api.KindOf(err))

	assert.Equal(t, Anonymous, m.Store().Snapshot().State)
	_, tokErr := m.Store().Token()
	assert.ErrorIs(t, tokErr, ErrNoToken)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
}

func TestLogout_ClearsLocallyThenNotifiesServer(t *testing.T) {
	backend := &fakeBackend{}
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)
	_, err := m.Login(ctx(t), api.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	m.Logout()
	assert.Equal(t, Anonymous, m.Store().Snapshot().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())

	m.Wait()
	assert.Equal(t, int32(1), backend.logoutCalls.Load())
	assert.Equal(t, "Bearer access-1", backend.logoutAuth.Load())
	assert.Equal(t, Anonymous, m.Store().Snapshot().State, "server failure does not revert logout")

	m.Logout()
	m.Wait()
	assert.Equal(t, int32(1), backend.logoutCalls.Load())
}

func TestUnauthorizedResponseSignsOut(t *testing.T) {
	backend := &fakeBackend{}
	storage := NewMemoryStorage(Record{})
	m, client := newManager(t, backend, storage)
	_, err := m.Login(ctx(t), api.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	_, err = client.Tables().List(ctx(t), api.PageParams{})
	require.True(t, api.IsUnauthenticated(err))
	assert.Equal(t, Anonymous, m.Store().Snapshot().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
}

func TestRefresh_SwapsTokenKeepsUser(t *testing.T) {
	backend := &fakeBackend{}
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)
	require.ErrorIs(t, m.Refresh(ctx(t)), ErrNotAuthenticated)

	_, err := m.Login(ctx(t), api.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, m.Refresh(ctx(t)))

	snap := m.Store().Snapshot()
	assert.Equal(t, "access-2", snap.Token)
	assert.Equal(t, "u1", snap.User.ID)
	stored, _ := storage.Load()
	assert.Equal(t, "access-2", stored.AuthToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestLogout_LateRejectionKeepsNextSession(t *testing.T) {
	backend := &fakeBackend{logoutRelease: make(chan struct{})}
	backend.logoutStatus.Store(http.StatusUnauthorized)
	storage := NewMemoryStorage(Record{})
	m, _ := newManager(t, backend, storage)
	released := false
	t.Cleanup(func() {
		if !released {
			close(backend.logoutRelease)
		}
	})
	creds := api.Credentials{Email: "ana@example.com", Password: "secret"}

	_, err := m.Login(ctx(t), creds)
	require.NoError(t, err)
	m.Logout()
	require.Eventually(t, func() bool { return backend.logoutCalls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = m.Login(ctx(t), creds)
	require.NoError(t, err)
	require.Equal(t, Authenticated, m.Store().Snapshot().State)

	released = true
	close(backend.logoutRelease)
	m.Wait()

	assert.Equal(t, Authenticated, m.Store().Snapshot().State)
	stored, _ := storage.Load()
	assert.Equal(t, "access-1", stored.AuthToken)
	assert.NotEmpty(t, stored.User)
}
