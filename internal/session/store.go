package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/glog"
	"golang.org/x/oauth2"

	"github.com/sazonarte/frontdesk/internal/api"
)

var (
	// ErrNoToken is returned by Token when no token is available.
	ErrNoToken = errors.New("no session token")
	// ErrNotAuthenticated is returned by operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// errLoginAborted means the session was cleared while a login was in progress.
	errLoginAborted = errors.New("login aborted: session cleared")
)

// State is the session lifecycle state.
type State int

const (
	Unknown State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a consistent view of the session. User and Token are set only
// when State is Authenticated.
type Snapshot struct {
	State State
	User  api.User
	Token string
}

// Authenticated reports whether a user is logged in.
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated
}

// Store is the single owner of session state. It also serves the bearer token
// to the transport as an oauth2.TokenSource.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	state   State
	user    api.User
	// userRecord is user as last written to or read from storage.
	userRecord string
	token      string
	refresh    string
	// pending is the token of a login that has not committed yet. Only the
	// token source sees it; readers still see Anonymous.
	pending string

	listenersMu sync.Mutex
	listeners   map[int]chan struct{}
	nextID      int

	now func() time.Time
}

// NewStore returns a Store in the Unknown state. Call Restore before use.
func NewStore(storage Storage) *Store {
	if storage == nil {
		storage = NewMemoryStorage(Record{})
	}
	return &Store{
		storage:   storage,
		listeners: make(map[int]chan struct{}),
		now:       time.Now,
	}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	if s.state != Authenticated {
		return Snapshot{State: s.state}
	}
	return Snapshot{State: s.state, User: s.user, Token: s.token}
}

// Token implements oauth2.TokenSource. A pending login token takes precedence.
func (s *Store) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok := s.pending
	if tok == "" && s.state == Authenticated {
		tok = s.token
	}
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated {
		return ""
	}
	return s.refresh
}

// Restore loads the durable record and leaves Unknown. Anything short of a
// complete, parseable, unexpired record clears storage and yields Anonymous.
func (s *Store) Restore() Snapshot {
	rec, err := s.storage.Load()
	if err != nil {
		glog.Warningf("[session] stored session unreadable, clearing: %v", err)
		rec = Record{}
	}
	user, ok := s.validRecord(rec)

	s.mu.Lock()
	if ok {
		s.setLocked(user, rec.User, rec.AuthToken, rec.RefreshToken)
	} else {
		if err != nil || !rec.Empty() {
			if clearErr := s.storage.Clear(); clearErr != nil {
				glog.Errorf("[session] clear stored session: %v", clearErr)
			}
		}
		s.clearLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	glog.Infof("[session] restored: %s", snap.State)
	s.broadcast()
	return snap
}

// Reload re-reads storage after another process changed it. It is a no-op
// when storage matches memory.
func (s *Store) Reload() {
	rec, err := s.storage.Load()
	if err != nil {
		glog.Warningf("[session] reload: %v", err)
		return
	}
	user, ok := s.validRecord(rec)

	s.mu.Lock()
	changed := false
	switch {
	case ok && (s.state != Authenticated || s.token != rec.AuthToken || s.refresh != rec.RefreshToken || s.userRecord != rec.User):
		s.setLocked(user, rec.User, rec.AuthToken, rec.RefreshToken)
		changed = true
	case !ok && s.state == Authenticated:
		s.clearLocked()
		changed = true
	}
	state := s.state
	s.mu.Unlock()

	if changed {
		glog.Infof("[session] changed by another process: %s", state)
		s.broadcast()
	}
}

func (s *Store) validRecord(rec Record) (api.User, bool) {
	if strings.TrimSpace(rec.AuthToken) == "" || strings.TrimSpace(rec.User) == "" {
		return api.User{}, false
	}
	var user api.User
	if err := json.Unmarshal([]byte(rec.User), &user); err != nil {
		glog.Warningf("[session] stored user is corrupt: %v", err)
		return api.User{}, false
	}
	if expired(rec.AuthToken, s.now()) {
		glog.Infof("[session] stored token expired")
		return api.User{}, false
	}
	return user, true
}

// expired reports whether token is a JWT whose exp lies in the past. Opaque
// tokens are never considered expired here; the server decides.
func expired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// ExpiresAt returns the exp claim of the current token, zero when unknown.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// stage makes token available to the transport for the rest of a login.
func (s *Store) stage(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = token
}

// discard drops a staged token if it is still the pending one.
func (s *Store) discard(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == token {
		s.pending = ""
	}
}

// commit persists user and tokens together and publishes Authenticated.
// It fails when the staged token was cleared in the meantime.
func (s *Store) commit(user api.User, tokens api.AuthTokens) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	s.mu.Lock()
	if s.pending != tokens.Access.Token {
		s.mu.Unlock()
		return errLoginAborted
	}
	rec := Record{AuthToken: tokens.Access.Token, RefreshToken: tokens.Refresh.Token, User: string(encoded)}
	if err := s.storage.Save(rec); err != nil {
		s.pending = ""
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.pending = ""
	s.setLocked(user, rec.User, tokens.Access.Token, tokens.Refresh.Token)
	s.mu.Unlock()

	glog.Infof("[session] authenticated as %s", user.Email)
	s.broadcast()
	return nil
}

// replaceTokens swaps the tokens of the current session, keeping the user.
func (s *Store) replaceTokens(tokens api.AuthTokens) error {
	s.mu.Lock()
	if s.state != Authenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	encoded, err := json.Marshal(s.user)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode user: %w", err)
	}
	refresh := tokens.Refresh.Token
	if refresh == "" {
		refresh = s.refresh
	}
	rec := Record{AuthToken: tokens.Access.Token, RefreshToken: refresh, User: string(encoded)}
	if err := s.storage.Save(rec); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.token = tokens.Access.Token
	s.refresh = refresh
	s.userRecord = rec.User
	s.mu.Unlock()

	s.broadcast()
	return nil
}

// Clear drops the session from memory and storage and returns the token that
// was in use, so the caller can still tell the server about it.
func (s *Store) Clear() string {
	s.mu.Lock()
	token := s.token
	if s.state != Authenticated {
		token = ""
	}
	wasAuthenticated := s.state == Authenticated
	if err := s.storage.Clear(); err != nil {
		glog.Errorf("[session] clear stored session: %v", err)
	}
	s.clearLocked()
	s.mu.Unlock()

	if wasAuthenticated {
		glog.Infof("[session] cleared")
	}
	s.broadcast()
	return token
}

// Invalidate is the 401 hook: the server no longer accepts our token.
func (s *Store) Invalidate() {
	s.mu.RLock()
	active := s.state == Authenticated || s.pending != ""
	s.mu.RUnlock()
	if !active {
		return
	}
	glog.Warningf("[session] server rejected token, signing out")
	s.Clear()
}

func (s *Store) setLocked(user api.User, userRecord, token, refresh string) {
	s.state = Authenticated
	s.user = user
	s.userRecord = userRecord
	s.token = token
	s.refresh = refresh
}

func (s *Store) clearLocked() {
	s.state = Anonymous
	s.user = api.User{}
	s.userRecord = ""
	s.token = ""
	s.refresh = ""
	s.pending = ""
}

// Changes returns a channel signalled after every transition, coalescing
// bursts, and a function that stops delivery.
func (s *Store) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.listenersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) broadcast() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
