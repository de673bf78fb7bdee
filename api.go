package cacheaside

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/cacheaside/codec"
	gen "github.com/unkn0wn-root/cacheaside/genstore"
	pr "github.com/unkn0wn-root/cacheaside/provider"
)

// Cache is the cache-aside engine for values of type V.
// All methods are safe for concurrent use.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// GetOrAdd returns the cached value for key, or runs fn, stores its
	// result and returns it. With locking enabled, concurrent callers for the
	// same key run fn at most once unless the lock wait times out.
	GetOrAdd(key string, fn func() (V, error), opts ...CallOption) (V, error)
	// GetOrAddContext is GetOrAdd with cancellation: ctx bounds the lock
	// wait and is passed to fn and to the store.
	GetOrAddContext(ctx context.Context, key string, fn func(context.Context) (V, error), opts ...CallOption) (V, error)

	// Get returns the stored, unexpired item for key.
	Get(ctx context.Context, key string) (Item[V], bool, error)

	// Remove deletes key from the store. Factory results for key that were
	// computed before Remove are not written afterwards.
	Remove(key string) error
	RemoveContext(ctx context.Context, key string) error

	// Key builds a key in the default namespace.
	Key(tenant, resource, hash string) Key
}

// Options configure the engine. Namespace and a store (Store, or Provider
// plus Codecs) are required; everything else has defaults.
type Options[V any] struct {
	Namespace string // default namespace for Key, e.g. "app:prod"

	// Store wins over Provider when both are set.
	Store Store[V]

	// Provider + Codecs build a ProviderStore.
	Provider       pr.Provider
	Codecs         []c.Codec[V]
	PreferredCodec string      // content type or codec type name; "" => last registered
	ComputeSetCost SetCostFunc // default: EntryOptions.Size, or 1

	Disabled bool // default false (enabled)

	// DefaultEntry applies when a call passes no expiration.
	// Zero => 10m absolute, relative to now.
	DefaultEntry EntryOptions
	// DefaultStampede applies when a call passes no policy.
	// nil => DefaultStampedePolicy().
	DefaultStampede *StampedePolicy

	Logger  Logger  // nil => NopLogger
	Hooks   Hooks   // nil => NopHooks
	Metrics Metrics // nil => NoopMetrics
	Clock   Clock   // nil => time.Now

	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	CleanupInterval time.Duration // LocalGenStore sweep; 0 => 1h
	GenRetention    time.Duration // LocalGenStore retention; 0 => 24h
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}

// CallOption adjusts a single GetOrAdd call.
type CallOption func(*callOptions)

type callOptions struct {
	entry    *EntryOptions
	stampede *StampedePolicy
}

// WithEntryOptions sets expiration, priority and size for the stored entry.
// An EntryOptions without any expiration inherits the engine's default
// expiration but keeps its Priority and Size.
func WithEntryOptions(o EntryOptions) CallOption {
	return func(co *callOptions) { co.entry = &o }
}

// WithStampedePolicy overrides the engine's default policy for this call.
func WithStampedePolicy(p StampedePolicy) CallOption {
	return func(co *callOptions) { co.stampede = &p }
}
