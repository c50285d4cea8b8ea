package relay

import "github.com/zoobzio/capitan"

// Field keys for relay events.
var (
	// KeyOutcome is "success" or "failure" on completion signals.
	KeyOutcome = capitan.NewStringKey("outcome")

	// KeyError is the error message when a completion is a failure.
	KeyError = capitan.NewStringKey("error")

	// KeySubscribers is the number of subscribers notified.
	KeySubscribers = capitan.NewIntKey("subscribers")

	// KeyPanic is the formatted panic value from a contained task panic.
	KeyPanic = capitan.NewStringKey("panic")
)
