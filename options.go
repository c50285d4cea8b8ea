package relay

import "github.com/zoobzio/clockz"

// Option configures constructors and combinators.
type Option func(*options)

type options struct {
	token *CancelToken
	clock clockz.Clock
	exec  Executor
}

func newOptions(opts []Option) options {
	o := options{clock: clockz.RealClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithToken ties the downstream primitive to a cancellation token.
// When the token fires, the primitive completes with ErrCancelled and
// its upstream subscription is released.
func WithToken(token *CancelToken) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithClock sets the clock used by Debounce's interval timer.
// Use this with clockz.FakeClock for deterministic timing tests.
// Delayed and Deadline ignore it: they time through their executor,
// whose clock is set with WithExecutorClock.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithExecutor sets the executor a combinator dispatches through where
// one applies (Delayed, Deadline). Default: Primary().
func WithExecutor(exec Executor) Option {
	return func(o *options) {
		o.exec = exec
	}
}

// executor returns the configured executor or the default.
func (o options) executor() Executor {
	if o.exec != nil {
		return o.exec
	}
	return Primary()
}
