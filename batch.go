package relay

import "sync"

// Batch collects updates of ch into slices of length capacity and
// emits each full batch as a single downstream update. On completion
// any non-empty partial batch is flushed before the completion is
// forwarded.
func Batch[U, S any](ch *Channel[U, S], capacity int, opts ...Option) *Channel[[]U, S] {
	if capacity < 1 {
		capacity = 1
	}
	o := newOptions(opts)
	prod := NewProducer[[]U, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}

	var mu sync.Mutex
	buf := make([]U, 0, capacity)

	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			mu.Lock()
			buf = append(buf, u)
			if len(buf) < capacity {
				mu.Unlock()
				return
			}
			full := buf
			buf = make([]U, 0, capacity)
			mu.Unlock()
			prod.Update(full)
			return
		}
		r, _ := e.Completion()
		mu.Lock()
		partial := buf
		buf = nil
		mu.Unlock()
		if len(partial) > 0 {
			prod.Update(partial)
		}
		prod.TryComplete(r)
	})
	tether(&prod.pool, sub)
	return prod.Channel
}

// Paired is a sliding window of two adjacent updates.
type Paired[U any] struct {
	Previous U
	Current  U
}

// Pairs emits each update of ch together with the one before it. The
// first upstream update yields nothing; the completion passes through
// unchanged.
func Pairs[U, S any](ch *Channel[U, S], opts ...Option) *Channel[Paired[U], S] {
	o := newOptions(opts)
	prod := NewProducer[Paired[U], S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}

	var mu sync.Mutex
	var prev *U

	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			mu.Lock()
			last := prev
			prev = &u
			mu.Unlock()
			if last != nil {
				prod.Update(Paired[U]{Previous: *last, Current: u})
			}
			return
		}
		r, _ := e.Completion()
		prod.TryComplete(r)
	})
	tether(&prod.pool, sub)
	return prod.Channel
}
