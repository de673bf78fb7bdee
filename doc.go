// Package cacheaside implements a cache-aside engine with per-key stampede
// protection. On a miss, concurrent callers for the same key are serialized
// on a keyed lock so the factory runs once; the others find the stored value
// on a second lookup after the lock is handed over. Other keys never wait.
//
// Components:
//   - Store[V]: where items live. ProviderStore frames items into a byte
//     Provider (Ristretto, BigCache, Redis) through a Codec; MemoryStore keeps
//     Go values in-process.
//   - keylock: reference-counted per-key locks, dropped as soon as no caller
//     holds or waits on them.
//   - GenStore: generation per key. Remove bumps it so a factory that was
//     already running cannot write its result back after the Remove.
//
// Flow:
//
//	store.Get(key) -> hit: return
//	miss -> lock(key, timeout) -> store.Get(key) again -> fn() -> store.Set -> unlock
//
// A lock wait that exceeds StampedePolicy.LockTimeout does not fail the call:
// the factory runs without the lock (duplicate work is possible), a debug line
// is logged and Hooks.LockTimeout fires.
//
// Keys:
//
//	<namespace>:<tenant>:<resource>:<hash>
//
// Usage:
//
//	c, _ := cacheaside.New[User](cacheaside.Options[User]{
//	    Namespace: "app:prod",
//	    Provider:  provider,
//	    Codecs:    []codec.Codec[User]{codec.JSON[User]{}},
//	})
//	k := c.Key(tenantID, "User", cacheaside.HashOf(userID))
//	u, err := c.GetOrAddContext(ctx, k.FullKey(), func(ctx context.Context) (User, error) {
//	    return repo.Load(ctx, userID)
//	}, cacheaside.WithEntryOptions(cacheaside.EntryOptions{AbsoluteExpirationRelativeToNow: time.Minute}))
package cacheaside
