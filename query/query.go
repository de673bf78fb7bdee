// Package query caches the results of query handlers.
//
// A Behavior sits in front of a handler: queries the policy selects are
// answered through Cache.GetOrAddContext, so concurrent identical queries run
// the handler once; everything else goes straight to the handler.
//
// The cache key is derived from the query value itself:
//
//	<namespace>:<tenant>:<resource>:<xxhash(deterministic CBOR(q))>
//
// so two queries with equal fields share an entry regardless of map ordering
// or how they were built. Only exported fields (those the CBOR encoder sees)
// take part: queries that differ only in unexported fields share an entry.
// Put everything that changes the result in exported fields, or use a
// cbor:"-" tag to leave an exported field out on purpose.
package query

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/internal/util"
)

// Handler answers a query.
type Handler[Q, R any] func(ctx context.Context, q Q) (R, error)

// Policy decides which queries are cached and for how long.
type Policy[Q any] struct {
	// ShouldCache selects queries to cache; nil caches every query.
	ShouldCache func(Q) bool
	// TTL is the absolute lifetime of cached results; 0 uses the cache's
	// default entry options.
	TTL time.Duration
	// Tenant scopes the key; nil leaves the tenant slot empty.
	Tenant func(Q) string
	// Resource names the key's resource slot; "" uses Q's type name.
	Resource string
	// Stampede overrides the cache's default policy when non-nil.
	Stampede *cacheaside.StampedePolicy
	// Priority and Size are stored with every cached result.
	Priority cacheaside.Priority
	Size     int64
}

// Behavior caches handler results for one query type.
type Behavior[Q, R any] struct {
	cache    cacheaside.Cache[R]
	policy   Policy[Q]
	resource string
	enc      codec.CBOR[Q]
	opts     []cacheaside.CallOption
}

func New[Q, R any](cache cacheaside.Cache[R], policy Policy[Q]) (*Behavior[Q, R], error) {
	if cache == nil {
		return nil, fmt.Errorf("query: cache is required")
	}
	enc, err := codec.NewCBOR[Q](true)
	if err != nil {
		return nil, fmt.Errorf("query: key encoder: %w", err)
	}
	b := &Behavior[Q, R]{
		cache:    cache,
		policy:   policy,
		resource: policy.Resource,
		enc:      enc,
	}
	if b.resource == "" {
		b.resource = typeName[Q]()
	}

	entry := cacheaside.EntryOptions{
		AbsoluteExpirationRelativeToNow: policy.TTL,
		Priority:                        policy.Priority,
		Size:                            policy.Size,
	}
	b.opts = append(b.opts, cacheaside.WithEntryOptions(entry))
	if policy.Stampede != nil {
		b.opts = append(b.opts, cacheaside.WithStampedePolicy(*policy.Stampede))
	}
	return b, nil
}

// Handle answers q from the cache or by calling next. Errors from next are
// returned unchanged and are never cached.
func (b *Behavior[Q, R]) Handle(ctx context.Context, q Q, next Handler[Q, R]) (R, error) {
	if !b.cache.Enabled() || (b.policy.ShouldCache != nil && !b.policy.ShouldCache(q)) {
		return next(ctx, q)
	}
	key, err := b.Key(q)
	if err != nil {
		var zero R
		return zero, err
	}
	return b.cache.GetOrAddContext(ctx, key.FullKey(), func(ctx context.Context) (R, error) {
		return next(ctx, q)
	}, b.opts...)
}

// Wrap returns next with caching applied.
func (b *Behavior[Q, R]) Wrap(next Handler[Q, R]) Handler[Q, R] {
	return func(ctx context.Context, q Q) (R, error) {
		return b.Handle(ctx, q, next)
	}
}

// Key is the cache key for q. Unexported fields of q do not affect it.
func (b *Behavior[Q, R]) Key(q Q) (cacheaside.Key, error) {
	raw, err := b.enc.Encode(q)
	if err != nil {
		return cacheaside.Key{}, fmt.Errorf("query: encode %s: %w", b.resource, err)
	}
	var tenant string
	if b.policy.Tenant != nil {
		tenant = b.policy.Tenant(q)
	}
	return b.cache.Key(tenant, b.resource, util.HashBytes(raw)), nil
}

// Invalidate removes the cached result for q.
func (b *Behavior[Q, R]) Invalidate(ctx context.Context, q Q) error {
	key, err := b.Key(q)
	if err != nil {
		return err
	}
	return b.cache.RemoveContext(ctx, key.FullKey())
}

// typeName is Q's type name without package path or generic arguments.
func typeName[Q any]() string {
	t := reflect.TypeOf((*Q)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
