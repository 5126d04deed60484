package query

// Subscription is one consumer's handle on an entry. C delivers a coalesced
// signal whenever the entry changes; Result reads the current state.
type Subscription struct {
	c      *Cache
	e      *entry
	ch     chan struct{}
	closed bool
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.e.key
}

// Result reads the entry's current state.
func (s *Subscription) Result() Result {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.e.result(s.c.now())
}

// C is signalled after every change. Several changes between reads collapse
// into one signal. It is closed by Close.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Refetch forces a new fetch for this entry, superseding any in flight.
func (s *Subscription) Refetch() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed || s.c.closed {
		return
	}
	e := s.e
	if e.pinned > 0 || e.fetch == nil {
		e.stale = true
		return
	}
	if e.inFlight {
		s.c.supersedeLocked(e)
	}
	s.c.startFetchLocked(e)
}

// Close detaches the consumer. No signal is delivered after Close returns.
// The entry becomes eligible for collection once its last subscriber leaves.
func (s *Subscription) Close() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.closed {
		return
	}
	s.closeLocked()
	e := s.e
	delete(e.subs, s)
	if len(e.subs) == 0 && e.pinned == 0 && !s.c.closed && s.c.entries[e.id] == e {
		s.c.scheduleLocked(e)
	}
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Subscription) signal() {
	if s.closed {
		return
	}
	select {
	case s.ch <- struct{}{}:
	default:
	}
}
