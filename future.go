package relay

import (
	"context"
	"sync/atomic"
	"time"
	"weak"

	"github.com/zoobzio/capitan"
)

// futureSub is one node in a future's subscriber stack.
type futureSub[T any] struct {
	sub  *Subscription
	fn   func(Result[T])
	next *futureSub[T]
}

// futureState is the value behind a future's head pointer: either a
// stack of subscribers (done false) or the terminal result (done true).
// States are immutable once installed; transitions replace the whole
// value via CAS.
type futureState[T any] struct {
	done   bool
	result Result[T]
	subs   *futureSub[T]
}

// Future is the read face of a single asynchronous result. Subscribe
// with OnComplete, OnSuccess, or OnFailure; subscribers registered
// after completion still receive the terminal value on their executor.
type Future[T any] struct {
	state atomic.Pointer[futureState[T]]
	pool  ReleasePool
}

// Promise is the write face of a Future. The zero value is not usable;
// construct with NewPromise.
type Promise[T any] struct {
	fut *Future[T]
}

// NewPromise returns an empty promise.
func NewPromise[T any]() Promise[T] {
	f := &Future[T]{}
	f.state.Store(&futureState[T]{})
	return Promise[T]{fut: f}
}

// Future returns the read face of the promise.
func (p Promise[T]) Future() *Future[T] {
	return p.fut
}

// TryComplete installs r as the terminal value. It returns true iff
// this call caused the transition; at most one call ever returns true.
func (p Promise[T]) TryComplete(r Result[T]) bool {
	return p.fut.complete(r)
}

// Resolve completes the promise with a success.
func (p Promise[T]) Resolve(v T) bool {
	return p.fut.complete(Success(v))
}

// Reject completes the promise with a failure.
func (p Promise[T]) Reject(err error) bool {
	return p.fut.complete(Failure[T](err))
}

// Cancel completes the promise with ErrCancelled. No-op if the promise
// is already complete.
func (p Promise[T]) Cancel() {
	p.fut.complete(Failure[T](ErrCancelled))
}

// Defer retains obj until the promise completes, then releases it.
func (p Promise[T]) Defer(obj any) {
	p.fut.pool.Retain(obj)
}

// Completion returns the terminal result if the future has completed.
// Non-blocking snapshot.
func (f *Future[T]) Completion() (Result[T], bool) {
	cur := f.state.Load()
	if cur == nil || !cur.done {
		var zero Result[T]
		return zero, false
	}
	return cur.result, true
}

// OnComplete registers fn to run on exec with the terminal result. If
// the future already completed, fn is dispatched immediately. The
// returned subscription severs the registration when cancelled.
func (f *Future[T]) OnComplete(exec Executor, fn func(Result[T])) *Subscription {
	sub := newSubscription(exec)
	node := &futureSub[T]{sub: sub, fn: fn}

	old, _ := swapHead(&f.state, func(cur *futureState[T]) *futureState[T] {
		if cur.done {
			return cur
		}
		node.next = pruneSubs(cur.subs)
		return &futureState[T]{subs: node}
	})
	if old.done {
		r := old.result
		sub.dispatch(func() { fn(r) })
	}
	return sub
}

// OnSuccess registers fn to run only when the future succeeds.
func (f *Future[T]) OnSuccess(exec Executor, fn func(T)) *Subscription {
	return f.OnComplete(exec, func(r Result[T]) {
		if v, ok := r.Value(); ok {
			fn(v)
		}
	})
}

// OnFailure registers fn to run only when the future fails.
func (f *Future[T]) OnFailure(exec Executor, fn func(error)) *Subscription {
	return f.OnComplete(exec, func(r Result[T]) {
		if err := r.Err(); err != nil {
			fn(err)
		}
	})
}

// pruneSubs drops cancelled nodes from the head of the stack. Interior
// nodes are left for the completion traversal to skip; the common case
// of subscribe-then-cancel churn at the head stays bounded.
func pruneSubs[T any](head *futureSub[T]) *futureSub[T] {
	for head != nil && !head.sub.Active() {
		head = head.next
	}
	return head
}

// complete attempts the terminal transition, dispatching the replaced
// subscriber stack and draining the release pool on success. No
// callback is invoked while the head is being swapped; dispatch happens
// strictly after the CAS lands.
func (f *Future[T]) complete(r Result[T]) bool {
	terminal := &futureState[T]{done: true, result: r}
	old, _ := swapHead(&f.state, func(cur *futureState[T]) *futureState[T] {
		if cur.done {
			return cur
		}
		return terminal
	})
	if old.done {
		return false
	}

	notified := 0
	for node := old.subs; node != nil; node = node.next {
		if node.sub.Active() {
			notified++
			node.sub.dispatch(func() { node.fn(r) })
		}
	}
	f.pool.Drain()
	emitCompletion(PromiseCompleted, r.Err(), notified)
	return true
}

// emitCompletion reports a terminal transition.
func emitCompletion(signal capitan.Signal, err error, subscribers int) {
	if err != nil {
		capitan.Emit(context.Background(), signal,
			KeySubscribers.Field(subscribers),
			KeyOutcome.Field("failure"),
			KeyError.Field(err.Error()),
		)
		return
	}
	capitan.Emit(context.Background(), signal,
		KeySubscribers.Field(subscribers),
		KeyOutcome.Field("success"),
	)
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

// Resolved returns a future already completed with a success.
func Resolved[T any](v T) *Future[T] {
	return Completed(Success(v))
}

// Failed returns a future already completed with a failure.
func Failed[T any](err error) *Future[T] {
	return Completed(Failure[T](err))
}

// Completed returns a future already completed with r.
func Completed[T any](r Result[T]) *Future[T] {
	f := &Future[T]{}
	f.state.Store(&futureState[T]{done: true, result: r})
	f.pool.Drain()
	return f
}

// Start runs fn on exec and returns a future for its outcome. A panic
// in fn fails the future with a PanicError.
func Start[T any](exec Executor, fn func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	exec.Execute(func() {
		p.TryComplete(capture(fn))
	})
	return p.fut
}

// StartAfter is Start with the task scheduled after d.
func StartAfter[T any](exec Executor, d time.Duration, fn func() (T, error)) *Future[T] {
	p := NewPromise[T]()
	exec.ExecuteAfter(d, func() {
		p.TryComplete(capture(fn))
	})
	return p.fut
}

// StartIn runs fn on exec bound to a weakly-held owner. If the owner
// has been collected by the time the task runs, the future fails with
// ErrContextGone instead of resurrecting it.
func StartIn[C any, T any](owner *C, exec Executor, fn func(*C) (T, error)) *Future[T] {
	ref := weak.Make(owner)
	p := NewPromise[T]()
	exec.Execute(func() {
		c := ref.Value()
		if c == nil {
			p.TryComplete(Failure[T](ErrContextGone))
			return
		}
		p.TryComplete(capture(func() (T, error) { return fn(c) }))
	})
	return p.fut
}

// Deferred creates a promise and hands it to fn on exec for manual
// completion. The future is returned immediately.
func Deferred[T any](exec Executor, fn func(Promise[T]), opts ...Option) *Future[T] {
	o := newOptions(opts)
	p := NewPromise[T]()
	if o.token != nil {
		o.token.Add(p)
	}
	exec.Execute(func() {
		fn(p)
	})
	return p.fut
}

// OnCompleteIn is OnComplete bound to a weakly-held owner. If the owner
// has been collected by dispatch time, fn is not invoked.
func OnCompleteIn[C any, T any](f *Future[T], owner *C, exec Executor, fn func(*C, Result[T])) *Subscription {
	ref := weak.Make(owner)
	return f.OnComplete(exec, func(r Result[T]) {
		c := ref.Value()
		if c == nil {
			return
		}
		fn(c, r)
	})
}
