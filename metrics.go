package keel

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key store events.
type MetricsProvider interface {
	// OnDispatch is called when an action is dispatched, before the
	// reducer is resolved.
	OnDispatch(actionType string)

	// OnInstall is called when a new snapshot is installed. Duration is
	// the time from dispatch to install, including deferred settlement.
	OnInstall(actionType string, duration time.Duration)

	// OnDispatchFailure is called when a derivation fails, synchronously
	// or at settlement.
	OnDispatchFailure(actionType string, duration time.Duration)

	// OnNotify is called after subscriber fan-out with the number of
	// subscribers that fired.
	OnNotify(subscribers int)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnDispatch(_ string)                         {}
func (NoOpMetricsProvider) OnInstall(_ string, _ time.Duration)         {}
func (NoOpMetricsProvider) OnDispatchFailure(_ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnNotify(_ int)                              {}
