package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sazonarte/frontdesk/internal/query"
	"github.com/sazonarte/frontdesk/internal/session"
)

type fakeSession struct {
	state   session.State
	expires time.Time
}

func (f fakeSession) Snapshot() session.Snapshot { return session.Snapshot{State: f.state} }
func (f fakeSession) ExpiresAt() time.Time       { return f.expires }

type fakeInvalidator struct {
	calls atomic.Int32
	last  atomic.Value
}

func (f *fakeInvalidator) Invalidate(prefix query.Key) int {
	f.calls.Add(1)
	f.last.Store(prefix.String())
	return 1
}

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func TestPollerTick_InvalidatesTablesWhenSignedIn(t *testing.T) {
	inv := &fakeInvalidator{}
	p := &Poller{Session: fakeSession{state: session.Authenticated}, Cache: inv}

	p.tick(context.Background())

	if got := inv.calls.Load(); got != 1 {
		t.Fatalf("Invalidate calls = %d, want 1", got)
	}
	if got := inv.last.Load(); got != `["tables"]` {
		t.Fatalf("invalidated %v, want the tables prefix", got)
	}
}

func TestPollerTick_IdleWhenSignedOut(t *testing.T) {
	inv := &fakeInvalidator{}
	ref := &fakeRefresher{}
	p := &Poller{Session: fakeSession{state: session.Anonymous}, Cache: inv, Refresher: ref}

	p.tick(context.Background())

	if inv.calls.Load() != 0 || ref.calls.Load() != 0 {
		t.Fatalf("signed-out tick did work: invalidate=%d refresh=%d", inv.calls.Load(), ref.calls.Load())
	}
}

func TestPollerTick_RefreshesExpiringToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		expires time.Time
		want    int32
	}{
		{"unknown expiry", time.Time{}, 0},
		{"far from expiry", now.Add(time.Hour), 0},
		{"inside lead", now.Add(30 * time.Second), 1},
		{"already expired", now.Add(-time.Second), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := &fakeRefresher{}
			p := &Poller{
				Session:   fakeSession{state: session.Authenticated, expires: tt.expires},
				Cache:     &fakeInvalidator{},
				Refresher: ref,
				now:       func() time.Time { return now },
			}
			p.tick(context.Background())
			if got := ref.calls.Load(); got != tt.want {
				t.Fatalf("Refresh calls = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPollerTick_RefreshFailureStillRevalidates(t *testing.T) {
	inv := &fakeInvalidator{}
	p := &Poller{
		Session:   fakeSession{state: session.Authenticated, expires: time.Now()},
		Cache:     inv,
		Refresher: &fakeRefresher{err: errors.New("refresh rejected")},
	}
	p.tick(context.Background())
	if got := inv.calls.Load(); got != 1 {
		t.Fatalf("Invalidate calls = %d, want 1", got)
	}
}

func TestPollerRun_StopsWithContext(t *testing.T) {
	inv := &fakeInvalidator{}
	p := &Poller{Session: fakeSession{state: session.Authenticated}, Cache: inv, Interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for inv.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller never ticked twice")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
