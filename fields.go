package keel

import "github.com/zoobzio/capitan"

// Field keys for store events.
var (
	// KeyAction is the action type of a dispatch.
	KeyAction = capitan.NewStringKey("action")

	// KeyError is the error message when a derivation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyVersion is the install counter after a snapshot install.
	KeyVersion = capitan.NewIntKey("version")

	// KeyNotified is the number of subscribers that fired for an install.
	KeyNotified = capitan.NewIntKey("notified")
)
