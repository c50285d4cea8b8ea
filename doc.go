// Package relay provides reactive asynchronous composition primitives:
// single-value futures, multi-value channels, and the executors,
// cancellation tokens, and release pools that plumb them together.
//
// # Futures and Promises
//
// A Promise is the write face of a single asynchronous result; its
// Future is the read face. Completion is atomic and at-most-once, and
// subscribers registered after completion still receive the terminal
// value on their executor:
//
//	p := relay.NewPromise[int]()
//	p.Future().OnSuccess(relay.Main(), func(v int) {
//	    log.Printf("got %d", v)
//	})
//	p.Resolve(42)
//
// # Channels and Producers
//
// A Producer emits zero or more updates followed by exactly one
// completion. Each subscriber observes updates in production order,
// and the completion after every update it was dealt. Late subscribers
// replay the most recent updates, bounded by the buffer size:
//
//	prod := relay.NewProducer[string, int](4)
//	prod.Channel.OnUpdate(relay.Immediate(), func(s string) { ... })
//	prod.Update("a")
//	prod.Finish(1)
//
// # Executors
//
// Callbacks dispatch through an Executor. Immediate() runs inline,
// Main() is a process-wide serial queue, Primary() a worker pool;
// NewSerial and NewPool build dedicated ones. Delayed dispatch is
// driven by a clockz.Clock, so tests substitute clockz.FakeClock.
//
// # Combinators
//
// Transform, Distinct, Debounce, Batch, Pairs, Enumerated, Delayed,
// Zip, Join, Deadline, and the Recover variants stack new primitives on
// existing ones. Each combinator parks its upstream subscription in the
// downstream's release pool, so the subscription lives exactly as long
// as the downstream, and accepts WithToken to tie the downstream to a
// cancellation token.
//
// # Errors
//
// Cancellation completes a primitive with ErrCancelled. A transform
// that returns an error or panics fails its downstream; panics arrive
// wrapped in PanicError. Contextual constructors fail with
// ErrContextGone when their weakly-held owner is collected first.
//
// Lifecycle events are emitted through capitan signals; see signals.go.
package relay
