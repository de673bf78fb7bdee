package cacheaside

import (
	"math/rand/v2"
	"time"
)

// Priority is an eviction hint. Ordered Low < Normal < High < NeverRemove;
// the zero value is Normal.
type Priority int8

const (
	PriorityLow Priority = iota - 1
	PriorityNormal
	PriorityHigh
	PriorityNeverRemove
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityNeverRemove:
		return "never_remove"
	default:
		return "unknown"
	}
}

// EntryOptions describe how long an entry lives and how it may be evicted.
//
// Absolute expiration can be given as a point in time, relative to now, or
// both (the earlier deadline wins). When sliding expiration is also set the
// absolute deadline stays an upper bound: a frequently read entry is renewed
// by SlidingExpiration but never past it.
type EntryOptions struct {
	AbsoluteExpiration              time.Time
	AbsoluteExpirationRelativeToNow time.Duration
	SlidingExpiration               time.Duration
	Priority                        Priority
	Size                            int64 // eviction cost hint; 0 = unknown
}

func (o EntryOptions) hasExpiration() bool {
	return !o.AbsoluteExpiration.IsZero() || o.AbsoluteExpirationRelativeToNow > 0 || o.SlidingExpiration > 0
}

// deadline resolves the absolute bound; zero when there is none.
func (o EntryOptions) deadline(now time.Time) time.Time {
	var dl time.Time
	if o.AbsoluteExpirationRelativeToNow > 0 {
		dl = now.Add(o.AbsoluteExpirationRelativeToNow)
	}
	if !o.AbsoluteExpiration.IsZero() && (dl.IsZero() || o.AbsoluteExpiration.Before(dl)) {
		dl = o.AbsoluteExpiration
	}
	return dl
}

const (
	DefaultLockTimeout = 5 * time.Second
	DefaultJitter      = 50 * time.Millisecond
)

// StampedePolicy controls per-key deduplication of factory calls.
type StampedePolicy struct {
	// EnableLocking serializes factory calls per key. When false every miss
	// runs the factory.
	EnableLocking bool
	// LockTimeout bounds the wait for the key lock; <= 0 means
	// DefaultLockTimeout. On timeout the factory runs without the lock.
	LockTimeout time.Duration
	// Jitter shortens each absolute TTL by a uniform random amount in
	// [0, Jitter] so entries written together do not expire together.
	// 0 disables it.
	Jitter time.Duration
}

// DefaultStampedePolicy has locking on, a 5s lock timeout and 50ms jitter.
func DefaultStampedePolicy() StampedePolicy {
	return StampedePolicy{EnableLocking: true, LockTimeout: DefaultLockTimeout, Jitter: DefaultJitter}
}

func (p StampedePolicy) lockTimeout() time.Duration {
	return coalesce(max(p.LockTimeout, 0), DefaultLockTimeout)
}

// Item is a cached value with its metadata. Items are values: methods return
// modified copies and never mutate the receiver.
type Item[V any] struct {
	Value       V
	CreatedAt   time.Time
	ExpiresAt   time.Time // zero => no expiry
	ContentType string    // codec content type; empty for object stores
	Options     EntryOptions
}

func (it Item[V]) Expired(now time.Time) bool {
	return !it.ExpiresAt.IsZero() && !now.Before(it.ExpiresAt)
}

// TTL is the remaining lifetime: 0 for no expiry, negative once expired.
func (it Item[V]) TTL(now time.Time) time.Duration {
	if it.ExpiresAt.IsZero() {
		return 0
	}
	if d := it.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return -1
}

// Touch renews sliding expiration as of now, capped by the absolute bound.
func (it Item[V]) Touch(now time.Time) Item[V] {
	s := it.Options.SlidingExpiration
	if s <= 0 {
		return it
	}
	exp := now.Add(s)
	if abs := it.Options.AbsoluteExpiration; !abs.IsZero() && abs.Before(exp) {
		exp = abs
	}
	it.ExpiresAt = exp
	return it
}

// newItem stamps v with now and resolves its expiration. The relative form is
// folded into Options.AbsoluteExpiration (jitter applied) so stores can keep
// enforcing the bound while sliding renews the entry.
// ok is false when the deadline has already passed.
func newItem[V any](v V, o EntryOptions, jitter time.Duration, now time.Time) (it Item[V], ok bool) {
	it = Item[V]{Value: v, CreatedAt: now, Options: o}
	it.Options.AbsoluteExpirationRelativeToNow = 0

	if dl := o.deadline(now); !dl.IsZero() {
		ttl := dl.Sub(now)
		if ttl <= 0 {
			return it, false
		}
		ttl -= jitterFor(ttl, jitter)
		it.Options.AbsoluteExpiration = now.Add(ttl)
		it.ExpiresAt = it.Options.AbsoluteExpiration
	}
	if s := o.SlidingExpiration; s > 0 {
		exp := now.Add(s)
		if !it.ExpiresAt.IsZero() && it.ExpiresAt.Before(exp) {
			exp = it.ExpiresAt
		}
		it.ExpiresAt = exp
	}
	return it, true
}

// jitterFor returns a uniform amount in [0, min(jitter, ttl/2)].
// It is subtracted from ttl, never added.
func jitterFor(ttl, jitter time.Duration) time.Duration {
	if jitter <= 0 || ttl <= 0 {
		return 0
	}
	j := min(jitter, ttl/2)
	return time.Duration(rand.Int64N(int64(j) + 1))
}
