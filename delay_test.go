package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestDelayed_HoldsEventsUntilDelayElapses(t *testing.T) {
	clock := clockz.NewFakeClock()
	exec := NewSerial(WithExecutorClock(clock))
	prod := NewProducer[int, struct{}](0)
	delayed := Delayed(prod.Channel, 50*time.Millisecond, WithExecutor(exec))

	var rec record[int, struct{}]
	delayed.OnEvent(Immediate(), rec.observe)

	prod.Update(1)
	prod.Update(2)
	prod.Finish(struct{}{})
	time.Sleep(10 * time.Millisecond)

	updates, results := rec.snapshot()
	if len(updates) != 0 || len(results) != 0 {
		t.Fatalf("events delivered before the delay: %v %v", updates, results)
	}

	clock.Advance(60 * time.Millisecond)
	clock.BlockUntilReady()

	deadline := time.Now().Add(time.Second)
	for {
		updates, results = rec.snapshot()
		if len(updates) == 2 && len(results) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout: got updates %v, results %v", updates, results)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if updates[0] != 1 || updates[1] != 2 {
		t.Errorf("expected order preserved [1 2], got %v", updates)
	}
}

func TestDeadline_CompletionBeatsTimeout(t *testing.T) {
	clock := clockz.NewFakeClock()
	exec := NewSerial(WithExecutorClock(clock))
	p := NewPromise[int]()
	guarded := Deadline(p.Future(), 100*time.Millisecond, WithExecutor(exec))

	p.Resolve(5)

	r, done := guarded.Completion()
	if !done {
		t.Fatal("expected completion")
	}
	v, _ := r.Value()
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}

	// The late timer loses the at-most-once race.
	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	r, _ = guarded.Completion()
	if !r.IsSuccess() {
		t.Error("timeout overwrote an existing completion")
	}
}

func TestDeadline_TimeoutWhenIncomplete(t *testing.T) {
	clock := clockz.NewFakeClock()
	exec := NewSerial(WithExecutorClock(clock))
	p := NewPromise[int]()
	guarded := Deadline(p.Future(), 100*time.Millisecond, WithExecutor(exec))

	time.Sleep(10 * time.Millisecond)
	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()

	r := awaitFuture(t, guarded)
	if !errors.Is(r.Err(), ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", r.Err())
	}

	// A completion arriving after the deadline does not reopen it.
	p.Resolve(5)
	r, _ = guarded.Completion()
	if !errors.Is(r.Err(), ErrTimeout) {
		t.Errorf("late completion leaked through, got %v", r.Err())
	}
}
