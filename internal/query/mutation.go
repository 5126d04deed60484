package query

import (
	"context"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

// Optimistic describes one cache write applied before the server answers.
// Keys with no cache entry are skipped; entries without data are held but
// left empty.
type Optimistic struct {
	Key    Key
	Update func(old any) any
}

// Mutation is a server write with optional optimistic cache updates.
//
// Mutations touching the same optimistic key run one at a time: the second
// waits until the first has settled before it snapshots.
type Mutation[T any] struct {
	Name       string
	Optimistic []Optimistic
	// Invalidate lists key prefixes to refetch after a successful Run.
	Invalidate []Key
	// Remove lists exact keys dropped after a successful Run.
	Remove []Key
	Run    func(ctx context.Context) (T, error)
}

type snapshot struct {
	e         *entry
	data      any
	hasData   bool
	status    Status
	err       error
	fetchedAt time.Time
	stale     bool
}

// Mutate runs m. Optimistic values are visible to every reader from before Run
// starts until it returns. On failure they are rolled back to the exact prior
// state and the error is returned; on success the Remove and Invalidate keys
// are applied.
func Mutate[T any](ctx context.Context, c *Cache, m Mutation[T]) (T, error) {
	var zero T
	id := ulid.Make().String()
	name := m.Name
	if name == "" {
		name = "mutation"
	}

	release, err := c.lockKeys(ctx, m.Optimistic)
	if err != nil {
		return zero, err
	}
	snaps, err := c.applyOptimistic(m.Optimistic)
	if err != nil {
		release()
		return zero, err
	}
	if len(snaps) > 0 {
		glog.V(2).Infof("[query] %s %s applied %d optimistic updates", name, id, len(snaps))
	}

	res, runErr := m.Run(ctx)
	if runErr != nil {
		c.rollback(snaps)
		release()
		c.metrics.mutation(false)
		if len(snaps) > 0 {
			glog.Warningf("[query] %s %s failed, rolled back: %v", name, id, runErr)
		}
		return zero, runErr
	}
	c.commit(snaps, m.Remove, m.Invalidate)
	release()
	c.metrics.mutation(true)
	glog.V(2).Infof("[query] %s %s committed", name, id)
	return res, nil
}

// keyLock serializes mutations on one key. refs counts holders and waiters
// so the lock can be dropped once nobody uses it.
type keyLock struct {
	ch   chan struct{}
	refs int
}

func (c *Cache) acquireLock(id string) *keyLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		c.locks[id] = l
	}
	l.refs++
	return l
}

func (c *Cache) dropLock(id string, l *keyLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 && c.locks[id] == l {
		delete(c.locks, id)
	}
}

// lockKeys takes the per-key mutation locks in sorted order so overlapping
// mutations cannot deadlock.
func (c *Cache) lockKeys(ctx context.Context, updates []Optimistic) (func(), error) {
	seen := make(map[string]struct{}, len(updates))
	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		id := u.Key.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type heldLock struct {
		id string
		l  *keyLock
	}
	held := make([]heldLock, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].l.ch
			c.dropLock(held[i].id, held[i].l)
		}
	}
	for _, id := range ids {
		l := c.acquireLock(id)
		select {
		case l.ch <- struct{}{}:
			held = append(held, heldLock{id: id, l: l})
		case <-ctx.Done():
			c.dropLock(id, l)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func (c *Cache) applyOptimistic(updates []Optimistic) ([]snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	snaps := make([]snapshot, 0, len(updates))
	for _, u := range updates {
		e, ok := c.entries[u.Key.String()]
		if !ok {
			continue
		}
		if e.inFlight {
			c.supersedeLocked(e)
			e.stale = true
		}
		if e.pinned == 0 {
			c.unscheduleLocked(e)
			snaps = append(snaps, snapshot{
				e:         e,
				data:      e.data,
				hasData:   e.hasData,
				status:    e.status,
				err:       e.err,
				fetchedAt: e.fetchedAt,
				stale:     e.stale,
			})
		}
		e.pinned++
		if e.hasData {
			c.setDataLocked(e, u.Update(e.data))
			c.notifyLocked(e)
		}
	}
	return snaps, nil
}

func (c *Cache) rollback(snaps []snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snaps {
		e := s.e
		e.data, e.hasData = s.data, s.hasData
		e.status, e.err = s.status, s.err
		e.fetchedAt = s.fetchedAt
		e.stale = e.stale || s.stale
		e.pinned = 0
		c.unpinnedLocked(e)
	}
}

func (c *Cache) commit(snaps []snapshot, remove, invalidate []Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range snaps {
		s.e.pinned = 0
	}
	if c.closed {
		return
	}
	for _, key := range remove {
		if e, ok := c.entries[key.String()]; ok && e.pinned == 0 {
			c.removeLocked(e)
		}
	}
	for _, prefix := range invalidate {
		c.invalidateLocked(prefix.parts())
	}
	for _, s := range snaps {
		c.unpinnedLocked(s.e)
	}
}

// unpinnedLocked resumes normal life for an entry once no mutation holds it.
func (c *Cache) unpinnedLocked(e *entry) {
	if c.closed || c.entries[e.id] != e {
		return
	}
	switch {
	case len(e.subs) == 0:
		c.scheduleLocked(e)
	case !e.inFlight && e.stale && e.opts.Enabled && e.fetch != nil:
		c.startFetchLocked(e)
	}
	c.notifyLocked(e)
}
