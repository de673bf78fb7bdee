// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:    10, // sample logs: ~every 10th self-heal
//	    LockTimeoutEvery: 1,  // log every lock timeout
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	c, _ := cacheaside.New[User](cacheaside.Options[User]{
//	    Namespace: "app:prod",
//	    Provider:  provider,
//	    Codecs:    []codec.Codec[User]{codec.JSON[User]{}},
//	    GenStore:  genstore.NewRedisGenStoreWithTTL(rdb, "app:prod", 24*time.Hour),
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/cacheaside"
)

// Hooks moves hook calls off the request path onto a bounded queue served by
// a fixed set of workers. Events are dropped when the queue is full.
type Hooks struct {
	inner   cacheaside.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ cacheaside.Hooks = (*Hooks)(nil)

func New(inner cacheaside.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) StaleWriteSkipped(k string)         { h.try(func() { h.inner.StaleWriteSkipped(k) }) }
func (h *Hooks) SelfHeal(k, r string)               { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)       { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) FactoryFailed(k string, err error)  { h.try(func() { h.inner.FactoryFailed(k, err) }) }
func (h *Hooks) GenSnapshotError(k string, e error) { h.try(func() { h.inner.GenSnapshotError(k, e) }) }
func (h *Hooks) LockTimeout(k string, d time.Duration) {
	h.try(func() { h.inner.LockTimeout(k, d) })
}
func (h *Hooks) RemoveOutage(k string, be, de error) {
	h.try(func() { h.inner.RemoveOutage(k, be, de) })
}
