package keel

import "github.com/zoobzio/capitan"

// Dispatch lifecycle signals.
var (
	// StoreDispatched is emitted when an action is dispatched.
	StoreDispatched = capitan.NewSignal(
		"keel.store.dispatched",
		"Action dispatched to the store",
	)

	// StoreReducerMissing is emitted when a dispatched action type has no
	// registered reducer. The dispatch is a no-op.
	StoreReducerMissing = capitan.NewSignal(
		"keel.store.reducer.missing",
		"Dispatch of an unregistered action type",
	)

	// StoreReducerFailed is emitted when a reducer fails synchronously.
	// State is left unchanged.
	StoreReducerFailed = capitan.NewSignal(
		"keel.store.reducer.failed",
		"Synchronous derivation failed",
	)

	// StoreDeferred is emitted when a reducer returns a pending result.
	StoreDeferred = capitan.NewSignal(
		"keel.store.deferred",
		"Derivation returned a pending result",
	)

	// StoreDeferFailed is emitted when a pending derivation settles with
	// an error. State is left unchanged.
	StoreDeferFailed = capitan.NewSignal(
		"keel.store.defer.failed",
		"Pending derivation settled with an error",
	)
)

// Install signals.
var (
	// StoreInstalled is emitted after a new snapshot is installed.
	StoreInstalled = capitan.NewSignal(
		"keel.store.installed",
		"New state snapshot installed",
	)

	// StoreNotified is emitted after subscriber fan-out for an install.
	StoreNotified = capitan.NewSignal(
		"keel.store.notified",
		"Subscribers notified after install",
	)
)
