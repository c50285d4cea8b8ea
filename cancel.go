package relay

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// Canceller is anything that can be cancelled. Promises and producers
// implement it: cancelling completes them with ErrCancelled, and is a
// no-op once they are already complete.
type Canceller interface {
	Cancel()
}

// CancelToken fans a single cancellation signal out to many
// cancellables. Cancel is idempotent; subscribers added after the token
// fired are cancelled immediately. Completed primitives treat Cancel as
// a no-op, so a token outliving its subscribers cannot revive them.
type CancelToken struct {
	mu        sync.Mutex
	cancelled bool
	subs      []Canceller
}

// NewCancelToken returns an unfired token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Add registers c to be cancelled when the token fires. If the token
// already fired, c is cancelled before Add returns.
func (t *CancelToken) Add(c Canceller) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		c.Cancel()
		return
	}
	t.subs = append(t.subs, c)
	t.mu.Unlock()
}

// Cancel fires the token. Each subscriber's Cancel runs exactly once
// across any number of Cancel calls. Subscriber callbacks run outside
// the token's lock.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, c := range subs {
		c.Cancel()
	}
	capitan.Emit(context.Background(), TokenCancelled,
		KeySubscribers.Field(len(subs)),
	)
}

// IsCancelled reports whether the token has fired.
func (t *CancelToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
