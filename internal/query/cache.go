package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned by mutations issued after Close.
var ErrClosed = errors.New("query cache closed")

// Status is the lifecycle state of an entry.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fetcher loads the value for one key. It must honour ctx cancellation.
type Fetcher func(ctx context.Context) (any, error)

// Result is what a subscriber reads. Err is the last failure and is kept
// alongside Data, which still holds the last good value.
type Result struct {
	Data      any
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time
	Fetching  bool
	Stale     bool
}

// Data returns r.Data as T.
func Data[T any](r Result) (T, bool) {
	if !r.HasData {
		var zero T
		return zero, false
	}
	v, ok := r.Data.(T)
	return v, ok
}

// Config holds cache-wide defaults, overridable per subscription. Start from
// DefaultConfig; a zero StaleAfter means always stale and a zero Retry means
// a single attempt.
type Config struct {
	StaleAfter    time.Duration
	GCAfter       time.Duration
	Retry         int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Meter         metric.Meter
	Now           func() time.Time
}

// DefaultConfig returns the console's query defaults.
func DefaultConfig() Config {
	return Config{
		StaleAfter:    DefaultStaleAfter,
		GCAfter:       DefaultGCAfter,
		Retry:         DefaultRetry,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

type entry struct {
	id    string
	key   Key
	parts []string

	data      any
	hasData   bool
	status    Status
	err       error
	fetchedAt time.Time
	stale     bool

	opts  Options
	fetch Fetcher

	gen      uint64
	inFlight bool
	cancel   context.CancelFunc

	subs    map[*Subscription]struct{}
	pinned  int
	idleGen uint64
}

func (e *entry) result(now time.Time) Result {
	return Result{
		Data:      e.data,
		HasData:   e.hasData,
		Status:    e.status,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Fetching:  e.inFlight,
		Stale:     e.isStale(now),
	}
}

func (e *entry) isStale(now time.Time) bool {
	if e.status != Success {
		return true
	}
	return e.stale || now.Sub(e.fetchedAt) >= e.opts.StaleAfter
}

// Cache is a keyed store of server state. All entry state lives behind one
// mutex; fetches run on their own goroutines and settle through it.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	locks    map[string]*keyLock
	defaults Options
	now      func() time.Time
	metrics  *metrics
	idle     *ttlcache.Cache[string, uint64]

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New builds a Cache and starts its idle collector. Call Close when done.
func New(cfg Config) (*Cache, error) {
	var meter meterProvider
	if cfg.Meter != nil {
		meter = cfg.Meter
	}
	m, err := newMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries: make(map[string]*entry),
		locks:   make(map[string]*keyLock),
		defaults: Options{
			StaleAfter:    cfg.StaleAfter,
			GCAfter:       cfg.GCAfter,
			Retry:         cfg.Retry,
			RetryDelay:    cfg.RetryDelay,
			MaxRetryDelay: cfg.MaxRetryDelay,
			Enabled:       true,
		}.normalized(),
		now:     now,
		metrics: m,
		idle:    ttlcache.New[string, uint64](ttlcache.WithDisableTouchOnHit[string, uint64]()),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.idle.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, uint64]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		go c.collect(item.Key(), item.Value())
	})
	go c.idle.Start()
	return c, nil
}

// Close cancels every in-flight fetch and closes all subscriptions.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	for _, e := range c.entries {
		for sub := range e.subs {
			sub.closeLocked()
		}
		e.subs = nil
	}
	c.mu.Unlock()
	c.idle.Stop()
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	return c.metrics.snapshot()
}

// Subscribe attaches a consumer to key. The returned Subscription reads the
// current state immediately. A fetch starts when the entry is missing, stale
// or failed, unless one is already in flight for key.
func (c *Cache) Subscribe(key Key, fetch Fetcher, opts ...Option) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &Subscription{c: c, ch: make(chan struct{}, 1)}
	if c.closed {
		sub.closed = true
		close(sub.ch)
		sub.e = &entry{key: key}
		return sub
	}
	e := c.entryLocked(key)
	e.opts = c.defaults.apply(opts).normalized()
	if fetch != nil {
		e.fetch = fetch
	}
	sub.e = e
	if e.subs == nil {
		e.subs = make(map[*Subscription]struct{})
	}
	e.subs[sub] = struct{}{}
	c.unscheduleLocked(e)

	switch {
	case e.inFlight:
		c.metrics.dedup()
	case c.shouldFetchLocked(e):
		c.startFetchLocked(e)
	}
	return sub
}

// Peek returns the cached data for key without subscribing.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Get is the typed form of Peek.
func Get[T any](c *Cache, key Key) (T, bool) {
	var zero T
	raw, ok := c.Peek(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// State returns the full result for key without subscribing.
func (c *Cache) State(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Result{}, false
	}
	return e.result(c.now()), true
}

// SetData overwrites the data for key without a network call. update receives
// the current value and whether one exists. A missing entry is created as a
// fresh success; an existing success keeps its status.
func (c *Cache) SetData(key Key, update func(old any, ok bool) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e := c.entryLocked(key)
	c.setDataLocked(e, update(e.data, e.hasData))
	if len(e.subs) == 0 && e.pinned == 0 {
		c.scheduleLocked(e)
	}
	c.notifyLocked(e)
}

// Set is the typed form of SetData.
func Set[T any](c *Cache, key Key, update func(old T, ok bool) T) {
	c.SetData(key, func(old any, ok bool) any {
		typed, match := old.(T)
		return update(typed, ok && match)
	})
}

func (c *Cache) setDataLocked(e *entry, data any) {
	e.data = data
	e.hasData = true
	if e.status != Success {
		e.status = Success
		e.err = nil
		e.fetchedAt = c.now()
	}
}

// Invalidate marks every entry under prefix stale. Any fetch in flight for
// those entries is cancelled and its result discarded; subscribed entries
// refetch at once. It returns the number of entries matched.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	return c.invalidateLocked(prefix.parts())
}

func (c *Cache) invalidateLocked(prefix []string) int {
	matched := 0
	for _, e := range c.entries {
		if !hasPrefix(e.parts, prefix) {
			continue
		}
		matched++
		e.stale = true
		if e.pinned > 0 {
			continue
		}
		if e.inFlight {
			c.supersedeLocked(e)
		}
		if len(e.subs) > 0 && e.opts.Enabled && e.fetch != nil {
			c.startFetchLocked(e)
		} else {
			c.notifyLocked(e)
		}
	}
	if matched > 0 {
		glog.V(2).Infof("[query] invalidated %d entries under %s", matched, "["+strings.Join(prefix, ",")+"]")
	}
	return matched
}

// Cancel aborts the in-flight fetch for key, if any. A cancelled first load
// falls back to Idle; an entry with data keeps it.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.inFlight {
		return
	}
	c.supersedeLocked(e)
	c.notifyLocked(e)
}

// Remove drops key from the cache. A subscribed entry cannot be dropped, so
// it is reset to Idle with no data and refetched.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || e.pinned > 0 {
		return
	}
	c.removeLocked(e)
}

// Clear drops every cached result, for use after sign-out. In-flight fetches
// are superseded and subscribed entries fall back to Idle without refetching.
// Entries held by a running mutation are left alone. It returns the number of
// entries cleared.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.pinned > 0 {
			continue
		}
		n++
		if e.inFlight {
			c.supersedeLocked(e)
		}
		if len(e.subs) == 0 {
			c.deleteLocked(e)
			continue
		}
		e.data, e.hasData = nil, false
		e.status, e.err = Idle, nil
		e.fetchedAt = time.Time{}
		e.stale = false
		c.notifyLocked(e)
	}
	if n > 0 {
		glog.V(1).Infof("[query] cleared %d entries", n)
	}
	return n
}

func (c *Cache) removeLocked(e *entry) {
	if e.inFlight {
		c.supersedeLocked(e)
	}
	if len(e.subs) == 0 {
		c.deleteLocked(e)
		return
	}
	e.data, e.hasData = nil, false
	e.status, e.err = Idle, nil
	e.fetchedAt = time.Time{}
	e.stale = false
	if e.opts.Enabled && e.fetch != nil {
		c.startFetchLocked(e)
		return
	}
	c.notifyLocked(e)
}

func (c *Cache) entryLocked(key Key) *entry {
	id := key.String()
	if e, ok := c.entries[id]; ok {
		return e
	}
	e := &entry{
		id:    id,
		key:   append(Key(nil), key...),
		parts: key.parts(),
		opts:  c.defaults,
	}
	c.entries[id] = e
	return e
}

func (c *Cache) shouldFetchLocked(e *entry) bool {
	if e.pinned > 0 || e.inFlight || !e.opts.Enabled || e.fetch == nil {
		return false
	}
	if e.status == Success {
		return e.isStale(c.now())
	}
	return true
}

// supersedeLocked bumps the generation so the running fetch cannot settle,
// then cancels it.
func (c *Cache) supersedeLocked(e *entry) {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.inFlight = false
	if e.status == Loading {
		e.status = Idle
	}
}

func (c *Cache) startFetchLocked(e *entry) {
	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(c.ctx)
	e.cancel = cancel
	e.inFlight = true
	if !e.hasData {
		e.status = Loading
	}
	c.metrics.fetch()
	c.notifyLocked(e)

	fetch, opts, key := e.fetch, e.opts, e.key
	go func() {
		data, err := c.fetchWithRetry(ctx, key, fetch, opts)
		c.settle(e, gen, data, err)
	}()
}

func (c *Cache) settle(e *entry, gen uint64, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.entries[e.id] != e || e.gen != gen {
		c.metrics.supersede()
		glog.V(2).Infof("[query] discarded superseded result for %s (gen %d)", e.id, gen)
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.inFlight = false
	if err != nil {
		e.status = Error
		e.err = err
		glog.V(1).Infof("[query] fetch %s failed: %v", e.id, err)
	} else {
		e.data, e.hasData = data, true
		e.status = Success
		e.err = nil
		e.fetchedAt = c.now()
		e.stale = false
	}
	c.notifyLocked(e)
}

func (c *Cache) notifyLocked(e *entry) {
	for sub := range e.subs {
		sub.signal()
	}
}

func (c *Cache) scheduleLocked(e *entry) {
	e.idleGen++
	c.idle.Set(e.id, e.idleGen, e.opts.GCAfter)
}

func (c *Cache) unscheduleLocked(e *entry) {
	e.idleGen++
	c.idle.Delete(e.id)
}

func (c *Cache) collect(id string, idleGen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.idleGen != idleGen || len(e.subs) > 0 || e.pinned > 0 {
		return
	}
	if e.inFlight {
		c.supersedeLocked(e)
	}
	c.deleteLocked(e)
	c.metrics.collect()
	glog.V(2).Infof("[query] collected idle entry %s", id)
}

func (c *Cache) deleteLocked(e *entry) {
	delete(c.entries, e.id)
	e.idleGen++
	c.idle.Delete(e.id)
}
