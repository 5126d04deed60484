package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sazonarte/frontdesk/internal/api"
)

func encodeUser(t *testing.T, u api.User) string {
	t.Helper()
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	return string(raw)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestRestore_CompleteRecordAuthenticates(t *testing.T) {
	storage := NewMemoryStorage(Record{AuthToken: "opaque", User: encodeUser(t, api.User{ID: "u1", Email: "ana@example.com"})})
	store := NewStore(storage)
	assert.Equal(t, Unknown, store.Snapshot().State)

	snap := store.Restore()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, "ana@example.com", snap.User.Email)

	tok, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok.AccessToken)
}

func TestRestore_InvalidRecordsClearBoth(t *testing.T) {
	cases := map[string]Record{
		"corrupt user":  {AuthToken: "opaque", User: "{not json"},
		"token only":    {AuthToken: "opaque"},
		"user only":     {User: `{"id":"u1"}`},
		"blank token":   {AuthToken: "  ", User: `{"id":"u1"}`},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			storage := NewMemoryStorage(rec)
			store := NewStore(storage)
			snap := store.Restore()
			assert.Equal(t, Anonymous, snap.State)
			assert.Empty(t, snap.Token)

			stored, err := storage.Load()
			require.NoError(t, err)
			assert.True(t, stored.Empty(), "storage left with %+v", stored)

			_, err = store.Token()
			assert.ErrorIs(t, err, ErrNoToken)
		})
	}
}

func TestRestore_ExpiredJWTIsAnonymous(t *testing.T) {
	storage := NewMemoryStorage(Record{
		AuthToken: signedToken(t, time.Now().Add(-time.Hour)),
		User:      encodeUser(t, api.User{ID: "u1"}),
	})
	store := NewStore(storage)
	assert.Equal(t, Anonymous, store.Restore().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
}

func TestRestore_LiveJWTAuthenticates(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	storage := NewMemoryStorage(Record{
		AuthToken: signedToken(t, exp),
		User:      encodeUser(t, api.User{ID: "u1"}),
	})
	store := NewStore(storage)
	assert.Equal(t, Authenticated, store.Restore().State)
	assert.True(t, store.ExpiresAt().Equal(exp))
}

func TestStore_PendingTokenInvisibleToReaders(t *testing.T) {
	store := NewStore(nil)
	store.Restore()
	store.stage("pending")

	assert.Equal(t, Anonymous, store.Snapshot().State)
	tok, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "pending", tok.AccessToken)

	store.discard("pending")
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestStore_CommitAfterInvalidateIsRejected(t *testing.T) {
	storage := NewMemoryStorage(Record{})
	store := NewStore(storage)
	store.Restore()
	store.stage("pending")
	store.Invalidate()

	err := store.commit(api.User{ID: "u1"}, api.AuthTokens{Access: api.TokenInfo{Token: "pending"}})
	require.ErrorIs(t, err, errLoginAborted)
	assert.Equal(t, Anonymous, store.Snapshot().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
}

func TestStore_ClearReturnsTokenAndNotifies(t *testing.T) {
	storage := NewMemoryStorage(Record{AuthToken: "opaque", User: encodeUser(t, api.User{ID: "u1"})})
	store := NewStore(storage)
	store.Restore()
	changes, stop := store.Changes()
	defer stop()

	assert.Equal(t, "opaque", store.Clear())
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
	assert.Equal(t, Anonymous, store.Snapshot().State)
	stored, _ := storage.Load()
	assert.True(t, stored.Empty())
	assert.Empty(t, store.Clear())
}

func TestStore_ReloadFollowsStorage(t *testing.T) {
	storage := NewMemoryStorage(Record{})
	store := NewStore(storage)
	store.Restore()

	require.NoError(t, storage.Save(Record{AuthToken: "other", User: encodeUser(t, api.User{ID: "u2"})}))
	store.Reload()
	snap := store.Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, "u2", snap.User.ID)

	require.NoError(t, storage.Clear())
	store.Reload()
	assert.Equal(t, Anonymous, store.Snapshot().State)
}

func TestStore_ReloadPicksUpProfileChanges(t *testing.T) {
	storage := NewMemoryStorage(Record{AuthToken: "tok", User: encodeUser(t, api.User{ID: "u1", Name: "Ana"})})
	store := NewStore(storage)
	store.Restore()

	changes, stop := store.Changes()
	defer stop()
	drain := func() bool {
		select {
		case <-changes:
			return true
		default:
			return false
		}
	}
	drain()

	store.Reload()
	assert.False(t, drain(), "an unchanged record is not a change")

	renamed := api.User{ID: "u1", Name: "Ana Maria", Roles: []api.Role{{ID: 1, Name: api.RoleCashier}}}
	require.NoError(t, storage.Save(Record{AuthToken: "tok", User: encodeUser(t, renamed)}))
	store.Reload()
	assert.True(t, drain())
	snap := store.Snapshot()
	assert.Equal(t, "Ana Maria", snap.User.Name)
	assert.True(t, snap.User.HasRole(api.RoleCashier))
}
