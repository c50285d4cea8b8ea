package relay

import (
	"errors"
	"sync/atomic"
	"testing"
)

type countingCanceller struct {
	count atomic.Int32
}

func (c *countingCanceller) Cancel() {
	c.count.Add(1)
}

func TestCancelToken_FiresSubscribers(t *testing.T) {
	token := NewCancelToken()
	var a, b countingCanceller

	token.Add(&a)
	token.Add(&b)
	token.Cancel()

	if a.count.Load() != 1 || b.count.Load() != 1 {
		t.Errorf("expected each subscriber cancelled once, got %d and %d",
			a.count.Load(), b.count.Load())
	}
	if !token.IsCancelled() {
		t.Error("expected token cancelled")
	}
}

func TestCancelToken_CancelIsIdempotent(t *testing.T) {
	token := NewCancelToken()
	var c countingCanceller

	token.Add(&c)
	token.Cancel()
	token.Cancel()
	token.Cancel()

	if c.count.Load() != 1 {
		t.Errorf("expected exactly 1 cancellation, got %d", c.count.Load())
	}
}

func TestCancelToken_AddAfterCancelFiresImmediately(t *testing.T) {
	token := NewCancelToken()
	token.Cancel()

	var c countingCanceller
	token.Add(&c)

	if c.count.Load() != 1 {
		t.Errorf("expected immediate cancellation, got %d", c.count.Load())
	}
}

func TestCancelToken_CancelsPromise(t *testing.T) {
	token := NewCancelToken()
	p := NewPromise[int]()

	token.Add(p)
	token.Cancel()

	r, done := p.Future().Completion()
	if !done {
		t.Fatal("expected completed promise")
	}
	if !errors.Is(r.Err(), ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", r.Err())
	}

	// The terminal value is settled; later completions lose.
	if p.TryComplete(Success(9)) {
		t.Error("expected TryComplete to return false after cancellation")
	}
}

func TestCancelToken_CancelAfterCompletionIsNoop(t *testing.T) {
	token := NewCancelToken()
	p := NewPromise[int]()
	token.Add(p)

	p.Resolve(5)
	token.Cancel()

	r, _ := p.Future().Completion()
	v, ok := r.Value()
	if !ok || v != 5 {
		t.Errorf("expected completed value 5, got (%d, %v)", v, ok)
	}
}
