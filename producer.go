package relay

import (
	"sync"
	"weak"

	"github.com/eapache/queue"
)

// producerSub is one subscriber of a channel. Events are appended to
// its queue in production order under the channel lock and pumped to
// the executor outside it, so per-subscriber ordering holds without a
// callback ever running under the channel lock.
type producerSub[U, S any] struct {
	sub *Subscription
	fn  func(Event[U, S])

	mu      sync.Mutex
	queue   []Event[U, S]
	pumping bool
}

// enqueue appends an event. Callers hold the channel lock, which is
// what serializes enqueue order across subscribers.
func (s *producerSub[U, S]) enqueue(e Event[U, S]) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
}

// pump drains the queue, dispatching each event in order. Only one
// pumper runs at a time; rivals return immediately and the holder
// re-checks for stragglers before releasing the flag.
func (s *producerSub[U, S]) pump() {
	s.mu.Lock()
	if s.pumping {
		s.mu.Unlock()
		return
	}
	for len(s.queue) > 0 {
		s.pumping = true
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.deliver(e)
		s.mu.Lock()
	}
	s.pumping = false
	s.mu.Unlock()
}

func (s *producerSub[U, S]) deliver(e Event[U, S]) {
	s.sub.dispatch(func() { s.fn(e) })
}

// Channel is the read face of a stream of updates terminated by a
// single completion. Late subscribers replay the most recent updates
// (bounded by the buffer size given at construction), then the
// completion if the channel is closed, then live events.
type Channel[U, S any] struct {
	mu         sync.Mutex
	subs       []*producerSub[U, S]
	ring       *queue.Queue
	bufferSize int
	done       bool
	completion Result[S]
	pool       ReleasePool
}

// Producer is the write face of a Channel.
type Producer[U, S any] struct {
	*Channel[U, S]
}

// NewProducer returns an open producer whose channel replays up to
// bufferSize recent updates to late subscribers. A bufferSize of zero
// disables replay.
func NewProducer[U, S any](bufferSize int) *Producer[U, S] {
	ch := &Channel[U, S]{bufferSize: bufferSize}
	if bufferSize > 0 {
		ch.ring = queue.New()
	}
	return &Producer[U, S]{Channel: ch}
}

// Update dispatches u to every live subscriber in subscription order
// and records it in the replay buffer. No-op once the channel closed.
func (p *Producer[U, S]) Update(u U) {
	ch := p.Channel
	ch.mu.Lock()
	if ch.done {
		ch.mu.Unlock()
		return
	}
	if ch.ring != nil {
		ch.ring.Add(u)
		if ch.ring.Length() > ch.bufferSize {
			ch.ring.Remove()
		}
	}
	targets := ch.enqueueLocked(UpdateEvent[U, S](u))
	ch.mu.Unlock()

	for _, s := range targets {
		s.pump()
	}
}

// TryComplete closes the channel with r. It returns true iff this call
// caused the transition; at most one call ever returns true. The
// completion is delivered to each subscriber after every update that
// subscriber was already dealt.
func (p *Producer[U, S]) TryComplete(r Result[S]) bool {
	ch := p.Channel
	ch.mu.Lock()
	if ch.done {
		ch.mu.Unlock()
		return false
	}
	ch.done = true
	ch.completion = r
	targets := ch.enqueueLocked(CompletionEvent[U, S](r))
	ch.subs = nil
	ch.mu.Unlock()

	for _, s := range targets {
		s.pump()
	}
	ch.pool.Drain()
	emitCompletion(ProducerCompleted, r.Err(), len(targets))
	return true
}

// Finish closes the channel with a success.
func (p *Producer[U, S]) Finish(v S) bool {
	return p.TryComplete(Success(v))
}

// Fail closes the channel with a failure.
func (p *Producer[U, S]) Fail(err error) bool {
	return p.TryComplete(Failure[S](err))
}

// Cancel closes the channel with ErrCancelled. In-flight updates
// already dealt to a subscriber may still be delivered; no new updates
// will be.
func (p *Producer[U, S]) Cancel() {
	p.TryComplete(Failure[S](ErrCancelled))
}

// Defer retains obj until the channel closes, then releases it.
func (p *Producer[U, S]) Defer(obj any) {
	p.pool.Retain(obj)
}

// enqueueLocked deals e to every live subscriber and prunes cancelled
// ones. Callers hold ch.mu and pump the returned subscribers after
// releasing it.
func (ch *Channel[U, S]) enqueueLocked(e Event[U, S]) []*producerSub[U, S] {
	live := ch.subs[:0]
	for _, s := range ch.subs {
		if !s.sub.Active() {
			continue
		}
		live = append(live, s)
		s.enqueue(e)
	}
	// Clear trailing slots so pruned subscribers are collectable.
	for i := len(live); i < len(ch.subs); i++ {
		ch.subs[i] = nil
	}
	ch.subs = live
	return append([]*producerSub[U, S](nil), live...)
}

// OnEvent registers fn to receive the channel's events on exec.
// Buffered updates are replayed first, then the completion if the
// channel is closed, then live events. The returned subscription
// severs the registration when cancelled.
func (ch *Channel[U, S]) OnEvent(exec Executor, fn func(Event[U, S])) *Subscription {
	s := &producerSub[U, S]{sub: newSubscription(exec), fn: fn}

	ch.mu.Lock()
	if ch.ring != nil {
		for i := 0; i < ch.ring.Length(); i++ {
			s.queue = append(s.queue, UpdateEvent[U, S](ch.ring.Get(i).(U)))
		}
	}
	if ch.done {
		s.queue = append(s.queue, CompletionEvent[U, S](ch.completion))
	} else {
		ch.subs = append(ch.subs, s)
	}
	ch.mu.Unlock()

	s.pump()
	return s.sub
}

// OnUpdate registers fn to receive only updates.
func (ch *Channel[U, S]) OnUpdate(exec Executor, fn func(U)) *Subscription {
	return ch.OnEvent(exec, func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			fn(u)
		}
	})
}

// OnCompletion registers fn to receive only the terminal result.
func (ch *Channel[U, S]) OnCompletion(exec Executor, fn func(Result[S])) *Subscription {
	return ch.OnEvent(exec, func(e Event[U, S]) {
		if r, ok := e.Completion(); ok {
			fn(r)
		}
	})
}

// Completion returns the terminal result if the channel has closed.
// Non-blocking snapshot.
func (ch *Channel[U, S]) Completion() (Result[S], bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.done {
		var zero Result[S]
		return zero, false
	}
	return ch.completion, true
}

// replaySize returns the channel's replay capacity. Combinators size
// their downstream buffer to match the upstream.
func (ch *Channel[U, S]) replaySize() int {
	return ch.bufferSize
}

// tether parks sub in pool so it lives until the pool drains, and
// severs it at that point so the upstream stops dispatching into a
// finished downstream.
func tether(pool *ReleasePool, sub *Subscription) {
	pool.Retain(sub)
	pool.NotifyDrain(sub.Cancel)
}

// OnEventIn is OnEvent bound to a weakly-held owner. If the owner has
// been collected by dispatch time, fn is not invoked.
func OnEventIn[C any, U, S any](ch *Channel[U, S], owner *C, exec Executor, fn func(*C, Event[U, S])) *Subscription {
	ref := weak.Make(owner)
	return ch.OnEvent(exec, func(e Event[U, S]) {
		c := ref.Value()
		if c == nil {
			return
		}
		fn(c, e)
	})
}

// Produce runs fn on exec with an emit function feeding a new channel;
// fn's return value becomes the completion.
func Produce[U, S any](exec Executor, bufferSize int, fn func(emit func(U)) (S, error), opts ...Option) *Channel[U, S] {
	o := newOptions(opts)
	prod := NewProducer[U, S](bufferSize)
	if o.token != nil {
		o.token.Add(prod)
	}
	exec.Execute(func() {
		prod.TryComplete(capture(func() (S, error) {
			return fn(prod.Update)
		}))
	})
	return prod.Channel
}

// ProduceIn is Produce bound to a weakly-held owner. If the owner has
// been collected by the time the task runs, the channel completes with
// ErrContextGone.
func ProduceIn[C any, U, S any](owner *C, exec Executor, bufferSize int, fn func(*C, func(U)) (S, error), opts ...Option) *Channel[U, S] {
	ref := weak.Make(owner)
	o := newOptions(opts)
	prod := NewProducer[U, S](bufferSize)
	if o.token != nil {
		o.token.Add(prod)
	}
	exec.Execute(func() {
		c := ref.Value()
		if c == nil {
			prod.Fail(ErrContextGone)
			return
		}
		prod.TryComplete(capture(func() (S, error) {
			return fn(c, prod.Update)
		}))
	})
	return prod.Channel
}
