package cacheaside

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps items as Go values in an in-process go-cache table.
// No serialization is involved; callers share the stored V, so V should be
// treated as immutable.
type MemoryStore[V any] struct {
	c     *gocache.Cache
	clock Clock
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

type MemoryStoreOptions struct {
	// CleanupInterval is how often expired entries are purged; 0 = never
	// (expired entries are still never returned).
	CleanupInterval time.Duration
	Clock           Clock
}

func NewMemoryStore[V any](opts MemoryStoreOptions) *MemoryStore[V] {
	return &MemoryStore[V]{
		c:     gocache.New(gocache.NoExpiration, opts.CleanupInterval),
		clock: coalesce[Clock](opts.Clock, systemClock{}),
	}
}

func (s *MemoryStore[V]) Get(_ context.Context, key string) (Item[V], bool, error) {
	var zero Item[V]
	x, ok := s.c.Get(key)
	if !ok {
		return zero, false, nil
	}
	it, ok := x.(Item[V])
	if !ok {
		s.c.Delete(key)
		return zero, false, nil
	}
	if it.Expired(s.clock.Now()) {
		s.c.Delete(key)
		return zero, false, nil
	}
	return it, true, nil
}

func (s *MemoryStore[V]) Set(_ context.Context, key string, it Item[V]) error {
	ttl := it.TTL(s.clock.Now())
	if ttl < 0 {
		return nil
	}
	s.c.Set(key, it, expiration(ttl))
	return nil
}

func (s *MemoryStore[V]) Remove(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Close drops all entries.
func (s *MemoryStore[V]) Close(context.Context) error {
	s.c.Flush()
	return nil
}

// Len is the number of stored entries, expired ones included until purged.
func (s *MemoryStore[V]) Len() int { return s.c.ItemCount() }

func expiration(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return gocache.NoExpiration
	}
	return ttl
}
