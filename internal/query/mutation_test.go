package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type table struct {
	ID     int
	Status string
}

func setStatus(id int, status string) func(any) any {
	return func(old any) any {
		tables, _ := old.([]table)
		next := make([]table, len(tables))
		copy(next, tables)
		for i := range next {
			if next[i].ID == id {
				next[i].Status = status
			}
		}
		return next
	}
}

func seedTables(t *testing.T, c *Cache, calls *atomic.Int32, server *atomic.Value) *Subscription {
	t.Helper()
	sub := c.Subscribe(Key{"tables"}, func(context.Context) (any, error) {
		calls.Add(1)
		return server.Load().([]table), nil
	})
	t.Cleanup(sub.Close)
	waitStatus(t, sub, Success)
	return sub
}

func TestMutate_RollsBackOnFailure(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	var server atomic.Value
	server.Store([]table{{ID: 1, Status: "AVAILABLE"}})
	sub := seedTables(t, c, &calls, &server)

	failure := errors.New("network down")
	var seen []table
	_, err := Mutate(context.Background(), c, Mutation[struct{}]{
		Name:       "update table status",
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")}},
		Invalidate: []Key{{"tables"}},
		Run: func(context.Context) (struct{}, error) {
			seen, _ = Get[[]table](c, Key{"tables"})
			return struct{}{}, failure
		},
	})
	require.ErrorIs(t, err, failure)
	assert.Equal(t, []table{{ID: 1, Status: "OCCUPIED"}}, seen)

	got, ok := Get[[]table](c, Key{"tables"})
	require.True(t, ok)
	assert.Equal(t, []table{{ID: 1, Status: "AVAILABLE"}}, got)
	assert.Equal(t, Success, sub.Result().Status)
	assert.Equal(t, int64(1), c.Stats().Rollbacks)
	assert.Equal(t, int32(1), calls.Load(), "rollback does not refetch fresh data")
}

func TestMutate_InvalidatesOnSuccess(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	var server atomic.Value
	server.Store([]table{{ID: 1, Status: "AVAILABLE"}})
	sub := seedTables(t, c, &calls, &server)

	_, err := Mutate(context.Background(), c, Mutation[table]{
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")}},
		Invalidate: []Key{{"tables"}},
		Run: func(context.Context) (table, error) {
			server.Store([]table{{ID: 1, Status: "OCCUPIED"}, {ID: 2, Status: "AVAILABLE"}})
			return table{ID: 1, Status: "OCCUPIED"}, nil
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	res := waitStatus(t, sub, Success)
	assert.Len(t, res.Data.([]table), 2)
}

func TestMutate_LeavesAbsentEntryEmpty(t *testing.T) {
	c := newTestCache(t)
	_, err := Mutate(context.Background(), c, Mutation[int]{
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")}},
		Run: func(context.Context) (int, error) {
			_, ok := c.Peek(Key{"tables"})
			assert.False(t, ok)
			return 0, errors.New("nope")
		},
	})
	require.Error(t, err)
	_, ok := c.Peek(Key{"tables"})
	assert.False(t, ok)
}

func TestMutate_SkipsKeysWithoutEntry(t *testing.T) {
	c := newTestCache(t)
	c.SetData(Key{"tables"}, func(any, bool) any { return []table{{ID: 1, Status: "AVAILABLE"}} })

	_, err := Mutate(context.Background(), c, Mutation[int]{
		Optimistic: []Optimistic{
			{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")},
			{Key: Key{"tables", "detail", 1}, Update: func(old any) any { return old }},
		},
		Run: func(context.Context) (int, error) {
			_, ok := c.State(Key{"tables", "detail", 1})
			assert.False(t, ok, "no entry is created for an uncached key")
			return 0, nil
		},
	})
	require.NoError(t, err)

	_, ok := c.State(Key{"tables", "detail", 1})
	assert.False(t, ok)
	got, _ := Get[[]table](c, Key{"tables"})
	assert.Equal(t, "OCCUPIED", got[0].Status)
}

func lockCount(c *Cache) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}

func TestMutate_DropsKeyLocksWhenDone(t *testing.T) {
	c := newTestCache(t)
	c.SetData(Key{"tables"}, func(any, bool) any { return []table{{ID: 1, Status: "AVAILABLE"}} })

	for i := 0; i < 3; i++ {
		_, _ = Mutate(context.Background(), c, Mutation[int]{
			Optimistic: []Optimistic{
				{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")},
				{Key: Key{"tables", "detail", i}, Update: func(old any) any { return old }},
			},
			Run: func(context.Context) (int, error) {
				assert.Equal(t, 2, lockCount(c))
				if i == 1 {
					return 0, errors.New("rejected")
				}
				return 0, nil
			},
		})
	}
	assert.Equal(t, 0, lockCount(c))
}

func TestMutate_HoldsKeyAgainstRefetch(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	var server atomic.Value
	server.Store([]table{{ID: 1, Status: "AVAILABLE"}})
	seedTables(t, c, &calls, &server)

	_, err := Mutate(context.Background(), c, Mutation[int]{
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")}},
		Run: func(context.Context) (int, error) {
			c.Invalidate(Key{"tables"})
			time.Sleep(20 * time.Millisecond)
			got, _ := Get[[]table](c, Key{"tables"})
			assert.Equal(t, "OCCUPIED", got[0].Status)
			assert.Equal(t, int32(1), calls.Load())
			return 0, errors.New("rejected")
		},
	})
	require.Error(t, err)

	// the invalidation seen during the mutation is honoured afterwards
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
}

func TestMutate_SerializesSameKey(t *testing.T) {
	c := newTestCache(t)
	c.SetData(Key{"tables"}, func(any, bool) any { return []table{{ID: 1, Status: "AVAILABLE"}} })

	firstRunning := make(chan struct{})
	releaseFirst := make(chan struct{})
	var secondStarted atomic.Bool
	done := make(chan error, 1)

	go func() {
		_, err := Mutate(context.Background(), c, Mutation[int]{
			Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "OCCUPIED")}},
			Run: func(context.Context) (int, error) {
				close(firstRunning)
				<-releaseFirst
				return 0, errors.New("first failed")
			},
		})
		done <- err
	}()
	<-firstRunning

	secondDone := make(chan []table, 1)
	go func() {
		_, _ = Mutate(context.Background(), c, Mutation[int]{
			Optimistic: []Optimistic{{Key: Key{"tables"}, Update: setStatus(1, "NEEDS_CLEANING")}},
			Run: func(context.Context) (int, error) {
				secondStarted.Store(true)
				got, _ := Get[[]table](c, Key{"tables"})
				secondDone <- got
				return 0, nil
			},
		})
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, secondStarted.Load())
	close(releaseFirst)
	require.Error(t, <-done)

	select {
	case got := <-secondDone:
		assert.Equal(t, []table{{ID: 1, Status: "NEEDS_CLEANING"}}, got)
	case <-time.After(waitFor):
		t.Fatal("second mutation never ran")
	}
}

func TestMutate_LockWaitHonoursContext(t *testing.T) {
	c := newTestCache(t)
	release := make(chan struct{})
	running := make(chan struct{})
	go func() {
		_, _ = Mutate(context.Background(), c, Mutation[int]{
			Optimistic: []Optimistic{{Key: Key{"tables"}, Update: func(any) any { return 1 }}},
			Run: func(context.Context) (int, error) {
				close(running)
				<-release
				return 0, nil
			},
		})
	}()
	<-running
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Mutate(ctx, c, Mutation[int]{
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: func(any) any { return 2 }}},
		Run:        func(context.Context) (int, error) { return 0, nil },
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, lockCount(c), "only the running mutation still holds the key")
}

func TestMutate_RemovesDetailAndInvalidatesList(t *testing.T) {
	c := newTestCache(t)
	c.SetData(Key{"tables"}, func(any, bool) any { return []table{{ID: 7}} })
	c.SetData(Key{"tables", "detail", 7}, func(any, bool) any { return table{ID: 7} })

	_, err := Mutate(context.Background(), c, Mutation[struct{}]{
		Remove:     []Key{{"tables", "detail", 7}},
		Invalidate: []Key{{"tables"}},
		Run:        func(context.Context) (struct{}, error) { return struct{}{}, nil },
	})
	require.NoError(t, err)

	_, ok := c.State(Key{"tables", "detail", 7})
	assert.False(t, ok)
	list, ok := c.State(Key{"tables"})
	require.True(t, ok)
	assert.True(t, list.Stale)
}

func TestMutate_AfterCloseFails(t *testing.T) {
	c := newTestCache(t)
	c.Close()
	_, err := Mutate(context.Background(), c, Mutation[int]{
		Optimistic: []Optimistic{{Key: Key{"tables"}, Update: func(any) any { return 1 }}},
		Run:        func(context.Context) (int, error) { return 1, nil },
	})
	require.ErrorIs(t, err, ErrClosed)
}
