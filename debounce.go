package relay

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// debouncer holds the coalescing state between the upstream callback
// and the tick loop.
type debouncer[U any] struct {
	clock    clockz.Clock
	interval time.Duration
	stop     chan struct{}
	once     sync.Once

	mu        sync.Mutex
	sentFirst bool
	pending   *U
}

// take removes and returns the pending update, if any. Both the tick
// loop and the completion flush go through here, so a coalesced update
// is emitted at most once.
func (d *debouncer[U]) take() *U {
	d.mu.Lock()
	p := d.pending
	d.pending = nil
	d.mu.Unlock()
	return p
}

// ticks emits the pending update on each interval tick until stopped.
func (d *debouncer[U]) ticks(emit func(U)) {
	for {
		timer := d.clock.NewTimer(d.interval)
		select {
		case <-d.stop:
			timer.Stop()
			return
		case <-timer.C():
			if p := d.take(); p != nil {
				emit(*p)
			}
		}
	}
}

func (d *debouncer[U]) halt() {
	d.once.Do(func() { close(d.stop) })
}

// Debounce coalesces bursts of updates. The first upstream update
// passes through immediately and starts a periodic timer; thereafter
// only the most recent update within each interval is emitted, on the
// tick. On completion the timer stops, any pending update is flushed,
// and then the completion is forwarded. Pass WithClock with a
// clockz.FakeClock for deterministic tests.
func Debounce[U, S any](ch *Channel[U, S], interval time.Duration, opts ...Option) *Channel[U, S] {
	o := newOptions(opts)
	prod := NewProducer[U, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}

	d := &debouncer[U]{
		clock:    o.clock,
		interval: interval,
		stop:     make(chan struct{}),
	}

	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			d.mu.Lock()
			if !d.sentFirst {
				d.sentFirst = true
				d.mu.Unlock()
				prod.Update(u)
				go d.ticks(prod.Update)
				return
			}
			d.pending = &u
			d.mu.Unlock()
			return
		}
		r, _ := e.Completion()
		d.halt()
		if p := d.take(); p != nil {
			prod.Update(*p)
		}
		prod.TryComplete(r)
	})
	tether(&prod.pool, sub)
	prod.pool.NotifyDrain(d.halt)
	return prod.Channel
}
