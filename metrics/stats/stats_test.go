package stats

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bool64/stats"
	"github.com/unkn0wn-root/cacheaside"
)

func TestAdapterTracksEngineEvents(t *testing.T) {
	st := &stats.TrackerMock{}
	c, err := cacheaside.New(cacheaside.Options[string]{
		Namespace: "ns",
		Store:     cacheaside.NewMemoryStore[string](cacheaside.MemoryStoreOptions{}),
		Metrics:   New(st, "users"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	_, _ = c.GetOrAdd("a", func() (string, error) { return "v", nil })
	_, _ = c.GetOrAdd("a", func() (string, error) { return "v", nil })
	_, _ = c.GetOrAdd("b", func() (string, error) { return "", errors.New("boom") })

	want := map[string]float64{
		MetricHit:          1,
		MetricMiss:         2,
		MetricCompute:      2,
		MetricFactoryError: 1,
	}
	if got := st.Values(); !reflect.DeepEqual(got, want) {
		t.Fatalf("values=%v want %v", got, want)
	}
}

func TestNilTrackerIsNoOp(t *testing.T) {
	a := New(nil, "x")
	a.Hit()
	a.LockTimeout()
}
