package relay

import "time"

// Delayed re-dispatches every event of ch after d via the executor's
// delayed queue. Order is preserved when the executor runs
// equally-delayed tasks one at a time in scheduling order, as the
// serial executors (NewSerial, Main) do. A pool executor (NewPool, and
// Primary, the default) releases them in scheduling order but may run
// them concurrently, so events can reach the downstream out of order.
// Default executor: Primary(). Pass WithExecutor to override (e.g. a
// NewSerial built on a fake clock for tests).
func Delayed[U, S any](ch *Channel[U, S], d time.Duration, opts ...Option) *Channel[U, S] {
	o := newOptions(opts)
	exec := o.executor()
	prod := NewProducer[U, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}
	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		exec.ExecuteAfter(d, func() {
			if u, ok := e.Update(); ok {
				prod.Update(u)
				return
			}
			r, _ := e.Completion()
			prod.TryComplete(r)
		})
	})
	tether(&prod.pool, sub)
	return prod.Channel
}

// Deadline fails the returned future with ErrTimeout if f has not
// completed within d. Completion and timeout race through the same
// at-most-once transition, so observers see exactly one outcome.
// Default executor: Primary(). Pass WithExecutor to override.
func Deadline[T any](f *Future[T], d time.Duration, opts ...Option) *Future[T] {
	o := newOptions(opts)
	exec := o.executor()
	p := NewPromise[T]()
	if o.token != nil {
		o.token.Add(p)
	}
	sub := f.OnComplete(Immediate(), func(r Result[T]) {
		p.TryComplete(r)
	})
	tether(&p.fut.pool, sub)
	exec.ExecuteAfter(d, func() {
		p.TryComplete(Failure[T](ErrTimeout))
	})
	return p.fut
}
