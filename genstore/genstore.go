// Package genstore keeps a generation counter per cache key.
//
// The engine snapshots a key's generation before running a factory and
// Remove bumps it. A factory result whose key moved on in the meantime is
// returned to its caller but never written, so a Remove cannot be undone by
// a computation that started before it.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process gens, or RedisGenStore when
// several replicas share one store.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, key string) (uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	Close(context.Context) error
}
