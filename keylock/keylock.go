// Package keylock provides exclusive critical sections scoped to string keys.
//
// A Registry holds one entry per key that is currently contended. Every
// acquisition attempt registers interest in the entry (creating it on first
// use) and every outcome - success followed by Release, timeout, cancellation
// or a failed wait - drops that interest exactly once. The entry is removed as
// soon as nobody references it, so memory is O(live contended keys).
//
//	r, err := locks.AcquireContext(ctx, "user:42", 5*time.Second)
//	if err != nil {
//		return err // ctx cancelled while waiting
//	}
//	if r == nil {
//		// timed out; caller decides how to proceed
//	}
//	defer r.Release()
package keylock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int // guarded by the registry's Compute on this key
}

// Registry is a set of per-key locks. The zero value is not usable; use New.
type Registry struct {
	m *xsync.MapOf[string, *entry]

	// wait blocks until sem is acquired or ctx is done.
	// Overridden in tests to inject failures.
	wait func(ctx context.Context, sem *semaphore.Weighted) error
}

func New() *Registry {
	return &Registry{
		m: xsync.NewMapOf[string, *entry](),
		wait: func(ctx context.Context, sem *semaphore.Weighted) error {
			return sem.Acquire(ctx, 1)
		},
	}
}

// Acquire blocks for up to timeout waiting for the lock on key.
// It returns nil when the timeout elapses.
//
// timeout == 0 makes a single non-blocking attempt; timeout < 0 waits
// without bound.
func (r *Registry) Acquire(key string, timeout time.Duration) *Releaser {
	rel, err := r.AcquireContext(context.Background(), key, timeout)
	if err != nil {
		// Background is never cancelled, only a failed wait lands here.
		panic(fmt.Sprintf("keylock: acquire %q: %v", key, err))
	}
	return rel
}

// AcquireContext is like Acquire but also gives up when ctx is done.
//
// Outcomes:
//   - acquired: (*Releaser, nil)
//   - timeout:  (nil, nil)
//   - ctx done: (nil, ctx.Err())
//   - wait failed for another reason: (nil, err)
//
// In every non-acquired case the reference taken on the key is dropped before
// returning, including when the wait panics.
func (r *Registry) AcquireContext(ctx context.Context, key string, timeout time.Duration) (rel *Releaser, err error) {
	e := r.ref(key)

	acquired := false
	defer func() {
		if !acquired {
			r.unref(key, e)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if timeout == 0 {
		if !e.sem.TryAcquire(1) {
			return nil, nil
		}
		acquired = true
		return &Releaser{reg: r, key: key, e: e}, nil
	}

	wctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if werr := r.wait(wctx, e.sem); werr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if wctx.Err() != nil {
			return nil, nil // timeout
		}
		return nil, fmt.Errorf("keylock: wait %q: %w", key, werr)
	}
	acquired = true
	return &Releaser{reg: r, key: key, e: e}, nil
}

// Len reports how many keys currently have a live entry.
func (r *Registry) Len() int { return r.m.Size() }

// ref registers interest in key, creating its entry if absent.
// Lookup-or-create and increment happen in one Compute.
func (r *Registry) ref(key string) *entry {
	e, _ := r.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return &entry{sem: semaphore.NewWeighted(1), refs: 1}, false
		}
		old.refs++
		return old, false
	})
	return e
}

// unref drops one reference held on e and removes it at zero.
// A stale e (key now maps to another entry or nothing) is left alone.
func (r *Registry) unref(key string, e *entry) {
	r.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return nil, true
		}
		if old != e {
			return old, false
		}
		old.refs--
		return old, old.refs <= 0
	})
}

// Releaser is the capability returned by a successful acquisition.
type Releaser struct {
	reg  *Registry
	key  string
	e    *entry
	done atomic.Bool
}

// Key returns the key this releaser holds.
func (rl *Releaser) Key() string { return rl.key }

// Release unlocks the key. Only the first call has an effect; calling it on a
// nil Releaser is a no-op as well.
func (rl *Releaser) Release() {
	if rl == nil || !rl.done.CompareAndSwap(false, true) {
		return
	}
	rl.e.sem.Release(1)
	rl.reg.unref(rl.key, rl.e)
}
