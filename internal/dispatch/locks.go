package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// lockTable hands out one exclusive slot per device. Entries are reference
// counted and dropped when no caller holds or waits for them, so the table
// does not grow with the number of devices ever dispatched to.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*deviceLock
}

type deviceLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*deviceLock)}
}

// acquire blocks until the slot for id is free, timeout elapses, or ctx is
// done. Waiters are served in arrival order. The returned func releases
// the slot and must be called exactly once.
func (t *lockTable) acquire(ctx context.Context, id string, timeout time.Duration) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &deviceLock{sem: semaphore.NewWeighted(1)}
		t.locks[id] = l
	}
	l.refs++
	t.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		t.unref(id, l)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: device %s after %s", ErrLockTimeout, id, timeout)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			t.unref(id, l)
		})
	}, nil
}

func (t *lockTable) unref(id string, l *deviceLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
}

// size returns the number of devices with a held or awaited slot.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
