package cacheaside

import (
	"context"
	"fmt"
	"sync"

	gen "github.com/unkn0wn-root/cacheaside/genstore"
	"github.com/unkn0wn-root/cacheaside/keylock"
)

type cache[V any] struct {
	ns      string
	store   Store[V]
	gen     gen.GenStore
	locks   *keylock.Registry
	log     Logger
	hooks   Hooks
	metrics Metrics
	clock   Clock
	enabled bool

	defaultEntry    EntryOptions
	defaultStampede StampedePolicy

	closeOnce sync.Once
	closeErr  error
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("cacheaside: namespace is required")
	}

	c := &cache[V]{
		ns:      opts.Namespace,
		enabled: !opts.Disabled,
		locks:   keylock.New(),
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.metrics = coalesce[Metrics](opts.Metrics, NoopMetrics{})
	c.clock = coalesce[Clock](opts.Clock, systemClock{})

	c.store = opts.Store
	if c.store == nil {
		if opts.Provider == nil {
			return nil, fmt.Errorf("cacheaside: store or provider is required")
		}
		ps, err := NewProviderStore(ProviderStoreOptions[V]{
			Provider:       opts.Provider,
			Codecs:         opts.Codecs,
			PreferredCodec: opts.PreferredCodec,
			ComputeSetCost: opts.ComputeSetCost,
			Logger:         c.log,
			Hooks:          c.hooks,
			Clock:          c.clock,
		})
		if err != nil {
			return nil, err
		}
		c.store = ps
	}

	c.defaultEntry = opts.DefaultEntry
	if !c.defaultEntry.hasExpiration() {
		c.defaultEntry.AbsoluteExpirationRelativeToNow = defaultTTL
	}
	c.defaultStampede = DefaultStampedePolicy()
	if opts.DefaultStampede != nil {
		c.defaultStampede = *opts.DefaultStampede
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		// gen store first (best effort)
		_ = c.gen.Close(ctx)
		c.closeErr = c.store.Close(ctx)
	})
	return c.closeErr
}

func (c *cache[V]) Key(tenant, resource, hash string) Key {
	return NewKey(c.ns, tenant, resource, hash)
}

func (c *cache[V]) GetOrAdd(key string, fn func() (V, error), opts ...CallOption) (V, error) {
	return c.GetOrAddContext(context.Background(), key, func(context.Context) (V, error) { return fn() }, opts...)
}

func (c *cache[V]) GetOrAddContext(
	ctx context.Context,
	key string,
	fn func(context.Context) (V, error),
	opts ...CallOption,
) (V, error) {
	var zero V
	if !c.enabled {
		return fn(ctx)
	}
	entry, policy := c.resolve(opts)

	v, ok, err := c.lookup(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		c.metrics.Hit()
		return v, nil
	}
	c.metrics.Miss()

	if !policy.EnableLocking {
		return c.compute(ctx, key, fn, entry, policy)
	}

	timeout := policy.lockTimeout()
	rel, err := c.locks.AcquireContext(ctx, key, timeout)
	if err != nil {
		return zero, err
	}
	if rel == nil {
		// Availability over exclusivity: run unprotected rather than block.
		c.log.Debug("lock wait timed out; computing without lock", Fields{"key": key, "timeout": timeout})
		c.hooks.LockTimeout(key, timeout)
		c.metrics.LockTimeout()
		return c.compute(ctx, key, fn, entry, policy)
	}
	defer rel.Release()

	// the previous holder may have stored it while we waited
	v, ok, err = c.lookup(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		c.metrics.Hit()
		return v, nil
	}
	return c.compute(ctx, key, fn, entry, policy)
}

func (c *cache[V]) Get(ctx context.Context, key string) (Item[V], bool, error) {
	var zero Item[V]
	if !c.enabled {
		return zero, false, nil
	}
	// taken before the read so a Remove racing it is seen by the renewal
	obs, genOK := c.snapshotGen(ctx, key)
	it, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("cacheaside: get %q: %w", key, err)
	}
	now := c.clock.Now()
	if !ok || it.Expired(now) {
		return zero, false, nil
	}
	if it.Options.SlidingExpiration > 0 {
		it = it.Touch(now)
		if genOK {
			c.renew(ctx, key, it, obs)
		}
	}
	return it, true, nil
}

// renew writes a touched sliding item back unless key was removed since obs.
func (c *cache[V]) renew(ctx context.Context, key string, it Item[V], obs uint64) {
	if !c.genUnchanged(ctx, key, obs) {
		return
	}
	if err := c.store.Set(ctx, key, it); err != nil {
		c.log.Warn("sliding renewal failed", Fields{"key": key, "err": err})
		return
	}
	if !c.genUnchanged(ctx, key, obs) {
		c.undo(ctx, key)
	}
}

func (c *cache[V]) Remove(key string) error {
	return c.RemoveContext(context.Background(), key)
}

func (c *cache[V]) RemoveContext(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	newGen, bumpErr := c.gen.Bump(ctx, key)
	delErr := c.store.Remove(ctx, key)

	switch {
	case bumpErr != nil && delErr != nil:
		c.log.Error("remove failed: gen bump and delete", Fields{"key": key, "bumpErr": bumpErr, "delErr": delErr})
		c.hooks.RemoveOutage(key, bumpErr, delErr)
	case bumpErr != nil:
		c.log.Warn("remove: gen bump failed", Fields{"key": key, "err": bumpErr})
	case delErr != nil:
		c.log.Warn("remove: delete failed", Fields{"key": key, "err": delErr})
	default:
		c.log.Debug("removed key", Fields{"key": key, "newGen": newGen})
		return nil
	}
	return &RemoveError{Key: key, BumpErr: bumpErr, DelErr: delErr}
}

func (c *cache[V]) lookup(ctx context.Context, key string) (V, bool, error) {
	it, ok, err := c.Get(ctx, key)
	return it.Value, ok, err
}

// compute runs fn and stores its result unless key was removed meanwhile.
// fn's error is returned as is and nothing is stored.
func (c *cache[V]) compute(
	ctx context.Context,
	key string,
	fn func(context.Context) (V, error),
	entry EntryOptions,
	policy StampedePolicy,
) (V, error) {
	var zero V
	obs, genOK := c.snapshotGen(ctx, key)

	c.metrics.Compute()
	v, err := fn(ctx)
	if err != nil {
		c.metrics.FactoryError()
		c.hooks.FactoryFailed(key, err)
		c.log.Debug("factory failed", Fields{"key": key, "err": err})
		return zero, err
	}
	if !genOK || !c.genUnchanged(ctx, key, obs) {
		return v, nil
	}

	it, ok := newItem(v, entry, policy.Jitter, c.clock.Now())
	if !ok {
		return v, nil
	}
	if err := c.store.Set(ctx, key, it); err != nil {
		return zero, fmt.Errorf("cacheaside: set %q: %w", key, err)
	}
	// Remove may have run between the check and Set; undo our write then.
	if !c.genUnchanged(ctx, key, obs) {
		c.undo(ctx, key)
	}
	return v, nil
}

// undo deletes a write that raced a Remove. If the delete fails the stale
// value stays until it expires.
func (c *cache[V]) undo(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, key); err != nil {
		c.log.Warn("undo of write raced by remove failed", Fields{"key": key, "err": err})
	}
}

func (c *cache[V]) genUnchanged(ctx context.Context, key string, obs uint64) bool {
	cur, ok := c.snapshotGen(ctx, key)
	if !ok {
		return false
	}
	if cur != obs {
		c.log.Debug("write skipped (removed during compute)", Fields{"key": key, "obs": obs, "gen": cur})
		c.hooks.StaleWriteSkipped(key)
		return false
	}
	return true
}

// snapshotGen reports ok=false when the generation is unknown; callers then
// skip the write.
func (c *cache[V]) snapshotGen(ctx context.Context, key string) (uint64, bool) {
	g, err := c.gen.Snapshot(ctx, key)
	if err != nil {
		c.log.Warn("gen snapshot error", Fields{"key": key, "err": err})
		c.hooks.GenSnapshotError(key, err)
		return 0, false
	}
	return g, true
}

func (c *cache[V]) resolve(opts []CallOption) (EntryOptions, StampedePolicy) {
	var co callOptions
	for _, o := range opts {
		o(&co)
	}
	entry := c.defaultEntry
	if co.entry != nil {
		if co.entry.hasExpiration() {
			entry = *co.entry
		} else {
			entry.Priority = co.entry.Priority
			entry.Size = co.entry.Size
		}
	}
	policy := c.defaultStampede
	if co.stampede != nil {
		policy = *co.stampede
	}
	return entry, policy
}
