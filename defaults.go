package cacheaside

import "time"

const (
	defaultTTL          = 10 * time.Minute
	defaultGenRetention = 24 * time.Hour
	defaultSweep        = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
