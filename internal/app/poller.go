package app

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/sazonarte/frontdesk/internal/feature"
	"github.com/sazonarte/frontdesk/internal/query"
	"github.com/sazonarte/frontdesk/internal/session"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultRefreshLead  = time.Minute
)

// SessionState is the part of the session store the poller reads.
type SessionState interface {
	Snapshot() session.Snapshot
	ExpiresAt() time.Time
}

// Invalidator marks cache entries stale.
type Invalidator interface {
	Invalidate(prefix query.Key) int
}

// Refresher swaps the access token before it expires.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller keeps the table floor current while someone is signed in. Every
// Interval it invalidates the tables list, which refetches only while a
// screen is subscribed, and renews the access token when it is about to
// expire.
type Poller struct {
	Session     SessionState
	Cache       Invalidator
	Refresher   Refresher // optional
	Interval    time.Duration
	RefreshLead time.Duration

	now func() time.Time
}

// Run ticks until ctx is cancelled. It always returns nil.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		p.tick(ctx)
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.Session.Snapshot().Authenticated() {
		return
	}

	if p.Refresher != nil && p.expiring() {
		if err := p.Refresher.Refresh(ctx); err != nil {
			glog.Warningf("[poller] token refresh failed: %v", err)
		}
	}

	if n := p.Cache.Invalidate(feature.TablesKey()); n > 0 {
		glog.V(2).Infof("[poller] revalidating %d table entries", n)
	}
}

func (p *Poller) expiring() bool {
	exp := p.Session.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	lead := p.RefreshLead
	if lead <= 0 {
		lead = defaultRefreshLead
	}
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	return exp.Sub(now()) <= lead
}
