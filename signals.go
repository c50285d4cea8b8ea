package relay

import "github.com/zoobzio/capitan"

// Completion signals.
var (
	// PromiseCompleted is emitted when a promise reaches its terminal value.
	PromiseCompleted = capitan.NewSignal(
		"relay.promise.completed",
		"Promise reached terminal value",
	)

	// ProducerCompleted is emitted when a producer closes.
	ProducerCompleted = capitan.NewSignal(
		"relay.producer.completed",
		"Producer delivered terminal completion",
	)
)

// Cancellation and resource signals.
var (
	// TokenCancelled is emitted when a cancellation token fires.
	TokenCancelled = capitan.NewSignal(
		"relay.token.cancelled",
		"Cancellation token fired",
	)

	// ExecutorTaskPanicked is emitted when a task panics on an executor
	// worker. The panic is contained; the worker keeps running.
	ExecutorTaskPanicked = capitan.NewSignal(
		"relay.executor.task.panicked",
		"Task panicked on executor worker",
	)
)
