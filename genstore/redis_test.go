package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func unreachable(t *testing.T) redis.UniversalClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisGenKeyLayout(t *testing.T) {
	s := NewRedisGenStore(nil, "app:prod")
	if got := s.key("ns:t:R:h"); got != "gen:app:prod:ns:t:R:h" {
		t.Fatalf("key=%q", got)
	}
}

func TestRedisGenStoreSurfacesOutage(t *testing.T) {
	ctx := context.Background()
	for _, s := range []*RedisGenStore{
		NewRedisGenStore(unreachable(t), "ns"),
		NewRedisGenStoreWithTTL(unreachable(t), "ns", time.Hour),
	} {
		if _, err := s.Snapshot(ctx, "k"); err == nil {
			t.Fatalf("Snapshot against unreachable redis returned nil error")
		}
		if _, err := s.Bump(ctx, "k"); err == nil {
			t.Fatalf("Bump against unreachable redis returned nil error")
		}
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}
