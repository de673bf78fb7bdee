// Package stats reports engine counters to a github.com/bool64/stats Tracker.
package stats

import (
	"context"

	"github.com/bool64/stats"
	"github.com/unkn0wn-root/cacheaside"
)

const (
	MetricHit          = "cache_hit"
	MetricMiss         = "cache_miss"
	MetricCompute      = "cache_build"
	MetricFactoryError = "cache_build_failed"
	MetricLockTimeout  = "cache_lock_timeout"
)

// Adapter adds 1 to the named metric per event, labeled with "name".
type Adapter struct {
	T      stats.Tracker
	Name   string
	labels []string
}

var _ cacheaside.Metrics = (*Adapter)(nil)

func New(t stats.Tracker, name string) *Adapter {
	if t == nil {
		t = stats.NoOp{}
	}
	return &Adapter{T: t, Name: name, labels: []string{"name", name}}
}

func (a *Adapter) Hit()          { a.add(MetricHit) }
func (a *Adapter) Miss()         { a.add(MetricMiss) }
func (a *Adapter) Compute()      { a.add(MetricCompute) }
func (a *Adapter) FactoryError() { a.add(MetricFactoryError) }
func (a *Adapter) LockTimeout()  { a.add(MetricLockTimeout) }

func (a *Adapter) add(metric string) {
	a.T.Add(context.Background(), metric, 1, a.labels...)
}
