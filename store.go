package cacheaside

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/internal/wire"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// Store is where the engine keeps items. Implementations must be safe for
// concurrent use. Get may return expired items; the engine checks expiry
// itself. Get must not write: sliding entries are renewed by the engine
// through Set, behind the same generation check as factory results, so a
// read cannot bring back a key that Remove deleted meanwhile.
type Store[V any] interface {
	// Get returns (item, true, nil) on hit and (zero, false, nil) on miss.
	Get(ctx context.Context, key string) (Item[V], bool, error)
	// Set stores item, honoring item.ExpiresAt and item.Options.
	Set(ctx context.Context, key string, item Item[V]) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// SetCostFunc computes the eviction cost passed to the provider.
// size is EntryOptions.Size.
type SetCostFunc func(key string, raw []byte, size int64) int64

func defaultSetCost(_ string, _ []byte, size int64) int64 {
	if size > 0 {
		return size
	}
	return 1
}

// ProviderStoreOptions configure a byte-oriented store.
// Provider and at least one codec are required.
type ProviderStoreOptions[V any] struct {
	Provider pr.Provider
	// Codecs is the registered set; PreferredCodec picks one of them by
	// content type or type name. Empty preference => last registered.
	Codecs         []c.Codec[V]
	PreferredCodec string
	ComputeSetCost SetCostFunc // default: Size, or 1

	Logger Logger
	Hooks  Hooks
	Clock  Clock
}

// ProviderStore frames items with their metadata and keeps them in a byte
// Provider. Entries that cannot be decoded, or were written with another
// content type, are deleted on read and reported as misses; so are expired
// ones, for providers without per-entry TTL.
type ProviderStore[V any] struct {
	provider pr.Provider
	codec    c.Codec[V]
	cost     SetCostFunc
	log      Logger
	hooks    Hooks
	clock    Clock
}

var _ Store[struct{}] = (*ProviderStore[struct{}])(nil)

func NewProviderStore[V any](opts ProviderStoreOptions[V]) (*ProviderStore[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("cacheaside: provider is required")
	}
	cd, err := c.Select(opts.Codecs, opts.PreferredCodec)
	if err != nil {
		return nil, fmt.Errorf("cacheaside: codec selection: %w", err)
	}
	s := &ProviderStore[V]{
		provider: opts.Provider,
		codec:    cd,
		cost:     opts.ComputeSetCost,
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
		clock:    coalesce[Clock](opts.Clock, systemClock{}),
	}
	if s.cost == nil {
		s.cost = defaultSetCost
	}
	return s, nil
}

// ContentType of the selected codec.
func (s *ProviderStore[V]) ContentType() string { return s.codec.ContentType() }

func (s *ProviderStore[V]) Get(ctx context.Context, key string) (Item[V], bool, error) {
	var zero Item[V]
	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	env, err := wire.Decode(raw)
	if err != nil {
		s.selfHeal(ctx, key, "corrupt")
		return zero, false, nil
	}
	if env.ContentType != s.codec.ContentType() {
		s.selfHeal(ctx, key, "content_type")
		return zero, false, nil
	}
	v, err := s.codec.Decode(env.Payload)
	if err != nil {
		s.selfHeal(ctx, key, "value_decode")
		return zero, false, nil
	}

	it := Item[V]{
		Value:       v,
		CreatedAt:   fromUnixNano(env.CreatedAt),
		ExpiresAt:   fromUnixNano(env.ExpiresAt),
		ContentType: env.ContentType,
		Options: EntryOptions{
			AbsoluteExpiration: fromUnixNano(env.Absolute),
			SlidingExpiration:  time.Duration(env.Sliding),
			Priority:           Priority(int8(env.Priority)),
			Size:               env.Size,
		},
	}

	now := s.clock.Now()
	if it.Expired(now) {
		// providers without per-entry TTL (BigCache) keep these around
		_ = s.provider.Del(ctx, key)
		return zero, false, nil
	}
	return it, true, nil
}

func (s *ProviderStore[V]) Set(ctx context.Context, key string, it Item[V]) error {
	ttl := it.TTL(s.clock.Now())
	if ttl < 0 {
		return nil // already expired
	}
	payload, err := s.codec.Encode(it.Value)
	if err != nil {
		return err
	}
	env := wire.Envelope{
		CreatedAt:   unixNano(it.CreatedAt),
		ExpiresAt:   unixNano(it.ExpiresAt),
		Absolute:    unixNano(it.Options.AbsoluteExpiration),
		Sliding:     int64(it.Options.SlidingExpiration),
		Size:        it.Options.Size,
		Priority:    uint8(it.Options.Priority),
		ContentType: s.codec.ContentType(),
		Payload:     payload,
	}
	return s.write(ctx, key, env, ttl)
}

func (s *ProviderStore[V]) write(ctx context.Context, key string, env wire.Envelope, ttl time.Duration) error {
	if ttl < 0 {
		return nil
	}
	b, err := wire.Encode(env)
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, key, b, s.cost(key, b, env.Size), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("set rejected by provider (pressure)", Fields{"key": key})
		s.hooks.ProviderSetRejected(key)
	}
	return nil
}

func (s *ProviderStore[V]) Remove(ctx context.Context, key string) error {
	return s.provider.Del(ctx, key)
}

func (s *ProviderStore[V]) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

func (s *ProviderStore[V]) selfHeal(ctx context.Context, key, reason string) {
	_ = s.provider.Del(ctx, key)
	s.log.Debug("dropped unreadable entry", Fields{"key": key, "reason": reason})
	s.hooks.SelfHeal(key, reason)
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
