package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/unkn0wn-root/cacheaside"
)

// Adapter implements cacheaside.Metrics with Prometheus counters.
// Safe for concurrent use.
type Adapter struct {
	lookups      *prometheus.CounterVec
	hits         prometheus.Counter
	misses       prometheus.Counter
	computes     prometheus.Counter
	factoryErrs  prometheus.Counter
	lockTimeouts prometheus.Counter
}

// New registers the counters with reg (nil => prometheus.DefaultRegisterer).
// ns and sub become the Prometheus namespace and subsystem; constLabels may
// be nil.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "lookups_total",
			Help:        "Fast-path lookups by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)
	a := &Adapter{
		lookups:      lookups,
		hits:         lookups.WithLabelValues("hit"),
		misses:       lookups.WithLabelValues("miss"),
		computes:     counter("factory_calls_total", "Factory invocations"),
		factoryErrs:  counter("factory_errors_total", "Factory invocations that returned an error"),
		lockTimeouts: counter("lock_timeouts_total", "Key lock waits that timed out; the factory ran without the lock"),
	}
	reg.MustRegister(a.lookups, a.computes, a.factoryErrs, a.lockTimeouts)
	return a
}

func (a *Adapter) Hit()          { a.hits.Inc() }
func (a *Adapter) Miss()         { a.misses.Inc() }
func (a *Adapter) Compute()      { a.computes.Inc() }
func (a *Adapter) FactoryError() { a.factoryErrs.Inc() }
func (a *Adapter) LockTimeout()  { a.lockTimeouts.Inc() }

var _ cacheaside.Metrics = (*Adapter)(nil)
