package cacheaside

import "time"

// Metrics receives counters from the engine. Adapters for Prometheus and
// bool64/stats live under metrics/.
type Metrics interface {
	Hit()
	Miss()
	// Compute counts factory invocations.
	Compute()
	FactoryError()
	LockTimeout()
}

// NoopMetrics is used when Options.Metrics is nil.
type NoopMetrics struct{}

func (NoopMetrics) Hit()          {}
func (NoopMetrics) Miss()         {}
func (NoopMetrics) Compute()      {}
func (NoopMetrics) FactoryError() {}
func (NoopMetrics) LockTimeout()  {}

var _ Metrics = NoopMetrics{}

// Clock provides the current time; swap it in tests.
type Clock interface{ Now() time.Time }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
