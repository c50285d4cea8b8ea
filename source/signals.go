package source

import "github.com/zoobzio/capitan"

// Source lifecycle signals.
var (
	// SourceStarted is emitted when a Source begins watching.
	SourceStarted = capitan.NewSignal(
		"relay.source.started",
		"Source watching started",
	)

	// SourceStopped is emitted when a Source stops watching.
	SourceStopped = capitan.NewSignal(
		"relay.source.stopped",
		"Source watching stopped",
	)

	// SourceStateChanged is emitted when a Source transitions between states.
	SourceStateChanged = capitan.NewSignal(
		"relay.source.state.changed",
		"Source state transition",
	)
)

// Change processing signals.
var (
	// SourceChangeReceived is emitted when raw data is read from the file.
	SourceChangeReceived = capitan.NewSignal(
		"relay.source.change.received",
		"Raw change read from file",
	)

	// SourceDecodeFailed is emitted when the decoder rejects the data.
	SourceDecodeFailed = capitan.NewSignal(
		"relay.source.decode.failed",
		"Decoder failed to decode data",
	)

	// SourceValidationFailed is emitted when validation rejects the
	// decoded value.
	SourceValidationFailed = capitan.NewSignal(
		"relay.source.validation.failed",
		"Validation rejected decoded value",
	)

	// SourcePipelineFailed is emitted when the processing pipeline fails.
	SourcePipelineFailed = capitan.NewSignal(
		"relay.source.pipeline.failed",
		"Processing pipeline failed",
	)

	// SourceEmitted is emitted when a decoded value reaches the channel.
	SourceEmitted = capitan.NewSignal(
		"relay.source.emitted",
		"Decoded value emitted as update",
	)
)

// Field keys for source events.
var (
	// KeyPath is the watched file path.
	KeyPath = capitan.NewStringKey("path")

	// KeyError is the error message when a stage fails.
	KeyError = capitan.NewStringKey("error")

	// KeyState is the state reported when a Source stops.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")
)
