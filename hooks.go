package cacheaside

import "time"

// Hooks are callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on the request
// path. Wrap slow ones in hooks/async.
type Hooks interface {
	// Lock wait for key exceeded timeout; the factory ran without exclusivity.
	// Sustained calls mean sustained contention on that key.
	LockTimeout(key string, timeout time.Duration)

	// Factory for key returned an error; nothing was stored.
	FactoryFailed(key string, err error)

	// Key was removed while its factory ran; the result was not stored.
	StaleWriteSkipped(key string)

	// A stored entry was unreadable and deleted.
	// reason ∈ {"corrupt", "content_type", "value_decode"}
	SelfHeal(key, reason string)

	// Provider returned ok=false on Set (backpressure/admission).
	ProviderSetRejected(key string)

	// GenStore snapshot failed; the write for key will be skipped.
	GenSnapshotError(key string, err error)

	// Both generation bump and store delete failed during Remove.
	RemoveOutage(key string, bumpErr, delErr error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LockTimeout(string, time.Duration) {}
func (NopHooks) FactoryFailed(string, error)       {}
func (NopHooks) StaleWriteSkipped(string)          {}
func (NopHooks) SelfHeal(string, string)           {}
func (NopHooks) ProviderSetRejected(string)        {}
func (NopHooks) GenSnapshotError(string, error)    {}
func (NopHooks) RemoveOutage(string, error, error) {}
