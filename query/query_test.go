package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/cacheaside"
)

type GetUser struct {
	TenantID string
	ID       int
	Fields   map[string]bool
}

type user struct{ Name string }

func newCache(t *testing.T) cacheaside.Cache[user] {
	t.Helper()
	c, err := cacheaside.New(cacheaside.Options[user]{
		Namespace: "app",
		Store:     cacheaside.NewMemoryStore[user](cacheaside.MemoryStoreOptions{}),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func counting(calls *atomic.Int64) Handler[GetUser, user] {
	return func(_ context.Context, q GetUser) (user, error) {
		calls.Add(1)
		return user{Name: "user-" + q.TenantID}, nil
	}
}

func TestHandleCachesSelectedQueries(t *testing.T) {
	c := newCache(t)
	b, err := New[GetUser, user](c, Policy[GetUser]{
		ShouldCache: func(q GetUser) bool { return q.ID != 0 },
		TTL:         time.Minute,
		Tenant:      func(q GetUser) string { return q.TenantID },
	})
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	next := counting(&calls)
	ctx := context.Background()
	q := GetUser{TenantID: "t1", ID: 7}

	for i := 0; i < 3; i++ {
		u, err := b.Handle(ctx, q, next)
		if err != nil || u.Name != "user-t1" {
			t.Fatalf("Handle: %+v %v", u, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("handler calls=%d want 1", calls.Load())
	}

	// not selected by the policy
	for i := 0; i < 2; i++ {
		_, _ = b.Handle(ctx, GetUser{TenantID: "t1"}, next)
	}
	if calls.Load() != 3 {
		t.Fatalf("uncached query calls=%d want 3", calls.Load())
	}
}

func TestKeyShape(t *testing.T) {
	c := newCache(t)
	b, _ := New[GetUser, user](c, Policy[GetUser]{Tenant: func(q GetUser) string { return q.TenantID }})

	k, err := b.Key(GetUser{TenantID: "t1", ID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if k.Namespace != "app" || k.Tenant != "t1" || k.Resource != "GetUser" || len(k.Hash) != 16 {
		t.Fatalf("key=%+v", k)
	}
	if !strings.HasPrefix(k.FullKey(), "app:t1:GetUser:") {
		t.Fatalf("FullKey=%q", k.FullKey())
	}

	named, _ := New[GetUser, user](c, Policy[GetUser]{Resource: "users.get"})
	if k2, _ := named.Key(GetUser{ID: 7}); k2.Resource != "users.get" || k2.Tenant != "" {
		t.Fatalf("key=%+v", k2)
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	c := newCache(t)
	b, _ := New[GetUser, user](c, Policy[GetUser]{})

	a := GetUser{ID: 1, Fields: map[string]bool{"a": true, "b": true, "c": false, "d": true}}
	z := GetUser{ID: 1, Fields: map[string]bool{"d": true, "c": false, "b": true, "a": true}}
	ka, _ := b.Key(a)
	for i := 0; i < 20; i++ {
		kz, _ := b.Key(z)
		if ka != kz {
			t.Fatalf("equal queries produced different keys: %v vs %v", ka, kz)
		}
	}
	if other, _ := b.Key(GetUser{ID: 2}); other == ka {
		t.Fatalf("different queries share a key")
	}
}

func TestConcurrentIdenticalQueriesRunOnce(t *testing.T) {
	c := newCache(t)
	b, _ := New[GetUser, user](c, Policy[GetUser]{TTL: time.Minute})

	var calls atomic.Int64
	slow := func(ctx context.Context, q GetUser) (user, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return user{Name: "x"}, nil
	}
	h := b.Wrap(slow)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h(context.Background(), GetUser{ID: 1}); err != nil {
				t.Errorf("handler: %v", err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("handler calls=%d want 1", calls.Load())
	}
}

func TestHandlerErrorNotCached(t *testing.T) {
	c := newCache(t)
	b, _ := New[GetUser, user](c, Policy[GetUser]{})
	boom := errors.New("boom")

	fail := func(context.Context, GetUser) (user, error) { return user{}, boom }
	if _, err := b.Handle(context.Background(), GetUser{ID: 1}, fail); err != boom {
		t.Fatalf("err=%v want boom", err)
	}

	var calls atomic.Int64
	if _, err := b.Handle(context.Background(), GetUser{ID: 1}, counting(&calls)); err != nil || calls.Load() != 1 {
		t.Fatalf("after error: calls=%d err=%v", calls.Load(), err)
	}
}

func TestInvalidate(t *testing.T) {
	c := newCache(t)
	b, _ := New[GetUser, user](c, Policy[GetUser]{})
	ctx := context.Background()

	var calls atomic.Int64
	q := GetUser{ID: 3}
	_, _ = b.Handle(ctx, q, counting(&calls))
	if err := b.Invalidate(ctx, q); err != nil {
		t.Fatal(err)
	}
	_, _ = b.Handle(ctx, q, counting(&calls))
	if calls.Load() != 2 {
		t.Fatalf("calls=%d want 2", calls.Load())
	}
}

func TestUnencodableQuery(t *testing.T) {
	c := newCache(t)
	b, err := New[chan int, user](c, Policy[chan int]{})
	if err != nil {
		t.Fatal(err)
	}
	called := false
	_, err = b.Handle(context.Background(), make(chan int), func(context.Context, chan int) (user, error) {
		called = true
		return user{}, nil
	})
	if err == nil || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

func TestNewRequiresCache(t *testing.T) {
	if _, err := New[GetUser, user](nil, Policy[GetUser]{}); err == nil {
		t.Fatalf("expected error")
	}
}

type pagedQuery struct {
	Page  int
	trace string
	Debug bool `cbor:"-"`
}

func TestKeyIgnoresUnexportedAndSkippedFields(t *testing.T) {
	c := newCache(t)
	b, _ := New[pagedQuery, user](c, Policy[pagedQuery]{})

	base, _ := b.Key(pagedQuery{Page: 1})
	for _, q := range []pagedQuery{{Page: 1, trace: "req-1"}, {Page: 1, Debug: true}} {
		if k, _ := b.Key(q); k != base {
			t.Fatalf("key for %+v=%v want %v", q, k, base)
		}
	}
	if k, _ := b.Key(pagedQuery{Page: 2}); k == base {
		t.Fatalf("exported field change must change the key")
	}
}
