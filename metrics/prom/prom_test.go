package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/unkn0wn-root/cacheaside"
)

func TestAdapterCountsEngineEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "app", "cache", prometheus.Labels{"cache": "users"})

	c, err := cacheaside.New(cacheaside.Options[int]{
		Namespace: "ns",
		Store:     cacheaside.NewMemoryStore[int](cacheaside.MemoryStoreOptions{}),
		Metrics:   a,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	ok := func() (int, error) { return 1, nil }
	_, _ = c.GetOrAdd("a", ok)
	_, _ = c.GetOrAdd("a", ok)
	_, _ = c.GetOrAdd("b", func() (int, error) { return 0, errors.New("boom") })

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"hits", testutil.ToFloat64(a.hits), 1},
		{"misses", testutil.ToFloat64(a.misses), 2},
		{"computes", testutil.ToFloat64(a.computes), 2},
		{"factory errors", testutil.ToFloat64(a.factoryErrs), 1},
		{"lock timeouts", testutil.ToFloat64(a.lockTimeouts), 0},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Fatalf("%s=%v want %v", ch.name, ch.got, ch.want)
		}
	}
	if n := testutil.CollectAndCount(reg); n != 5 {
		t.Fatalf("collected series=%d want 5", n)
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "app", "cache", nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustRegister panic")
		}
	}()
	New(reg, "app", "cache", nil)
}
