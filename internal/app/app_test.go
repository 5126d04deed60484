package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sazonarte/frontdesk/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestOpen_WiresBoltSessionBackend(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "session.db")
	cfgPath := writeConfig(t, `
api_base_url = "127.0.0.1:9"
request_timeout = "2s"

[session]
backend = "bolt"
path = "`+filepath.ToSlash(dbPath)+`"
`)
	t.Setenv("FRONTDESK_API_URL", "")

	env, err := Open(Options{ConfigPath: cfgPath, PrefsPath: filepath.Join(dir, "prefs.toml")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = env.Close() }()

	if _, ok := env.storage.(*session.BoltStorage); !ok {
		t.Fatalf("storage = %T, want *session.BoltStorage", env.storage)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("session db not created: %v", err)
	}
	if got := env.Client.BaseURL(); !strings.HasSuffix(got, "/api/v1") {
		t.Fatalf("BaseURL = %q, want /api/v1 suffix", got)
	}
	if env.Store.Snapshot().State != session.Anonymous {
		t.Fatalf("fresh session state = %s, want anonymous", env.Store.Snapshot().State)
	}
	if env.Tables == nil || env.Categories == nil || env.Items == nil || env.Profile == nil {
		t.Fatalf("features not wired")
	}
}

func TestOpen_FileBackendRestoresSavedSession(t *testing.T) {
	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "session.toml")
	storage, err := session.NewFileStorage(sessionPath)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	if err := storage.Save(session.Record{AuthToken: "tok", User: `{"id":"u1","name":"Ana"}`}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfgPath := writeConfig(t, `
[session]
path = "`+filepath.ToSlash(sessionPath)+`"
`)

	env, err := Open(Options{ConfigPath: cfgPath, PrefsPath: filepath.Join(dir, "prefs.toml")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = env.Close() }()

	snap := env.Store.Snapshot()
	if !snap.Authenticated() || snap.User.Name != "Ana" {
		t.Fatalf("restored snapshot = %+v, want Ana signed in", snap)
	}
	if _, ok := env.storage.(session.Watcher); !ok {
		t.Fatalf("file storage should support watching")
	}
}

func TestOpen_BadConfigFails(t *testing.T) {
	cfgPath := writeConfig(t, "retry = [")
	if _, err := Open(Options{ConfigPath: cfgPath}); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Open error = %v, want parse config failure", err)
	}
}

type countingClearer struct{ calls atomic.Int32 }

func (c *countingClearer) Clear() int {
	c.calls.Add(1)
	return 0
}

func TestClearOnSignOut_ClearsOnlyOnTransition(t *testing.T) {
	store := session.NewStore(session.NewMemoryStorage(session.Record{AuthToken: "tok", User: `{"id":"u1"}`}))
	if !store.Restore().Authenticated() {
		t.Fatalf("expected restored session")
	}
	cache := &countingClearer{}
	loop := clearOnSignOut(store, cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop(ctx) }()

	store.Clear()
	deadline := time.Now().Add(2 * time.Second)
	for cache.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("cache never cleared after sign-out")
		}
		time.Sleep(time.Millisecond)
	}

	// Clearing an already anonymous session is not a transition.
	store.Clear()
	time.Sleep(20 * time.Millisecond)
	if got := cache.calls.Load(); got != 1 {
		t.Fatalf("Clear calls = %d, want 1", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("loop returned %v", err)
	}
}
