package relay

import (
	"context"

	"github.com/zoobzio/streamz"
)

// PipeOption configures the stages between a Go channel and the
// producer it feeds.
type PipeOption[U any] func(*pipeConfig[U])

type pipeConfig[U any] struct {
	stages []streamz.Processor[U, U]
}

// PipeThrottle rate-limits the piped stream to perSecond updates.
func PipeThrottle[U any](perSecond float64) PipeOption[U] {
	return func(c *pipeConfig[U]) {
		c.stages = append(c.stages, streamz.NewThrottle[U](perSecond))
	}
}

// PipeBuffer absorbs bursts of up to size updates between the source
// channel and the producer.
func PipeBuffer[U any](size int) PipeOption[U] {
	return func(c *pipeConfig[U]) {
		c.stages = append(c.stages, streamz.NewBuffer[U](size))
	}
}

// PipeFilter drops updates for which pred returns false before they
// reach the producer.
func PipeFilter[U any](name string, pred func(U) bool) PipeOption[U] {
	return func(c *pipeConfig[U]) {
		c.stages = append(c.stages, streamz.NewFilter[U](name, pred))
	}
}

// Drain exposes ch as a plain Go channel of events: updates in order,
// then the completion, after which the returned channel closes. It is
// the inverse of Pipe. Consumption is the backpressure: the forwarding
// subscription runs on its own serial executor and blocks until the
// caller receives, so an abandoned reader must cancel ctx to release
// it.
func Drain[U, S any](ctx context.Context, ch *Channel[U, S]) <-chan Event[U, S] {
	out := make(chan Event[U, S])
	events := make(chan Event[U, S])

	sub := ch.OnEvent(NewSerial(), func(e Event[U, S]) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})

	// Only this goroutine touches out, so the close cannot race a send.
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case e := <-events:
				select {
				case out <- e:
				case <-ctx.Done():
					sub.Cancel()
					return
				}
				if !e.IsUpdate() {
					sub.Cancel()
					return
				}
			}
		}
	}()

	return out
}

// Pipe feeds a new channel from a Go channel, running each value
// through the configured stages first. The channel completes with the
// number of updates forwarded when in closes, or with ErrCancelled when
// ctx is done. bufferSize is the replay capacity of the resulting
// channel.
func Pipe[U any](ctx context.Context, in <-chan U, bufferSize int, opts ...PipeOption[U]) *Channel[U, int] {
	cfg := &pipeConfig[U]{}
	for _, opt := range opts {
		opt(cfg)
	}

	prod := NewProducer[U, int](bufferSize)

	current := in
	for _, stage := range cfg.stages {
		current = stage.Process(ctx, current)
	}

	go func() {
		n := 0
		for {
			select {
			case <-ctx.Done():
				prod.Cancel()
				return
			case u, ok := <-current:
				if !ok {
					prod.Finish(n)
					return
				}
				prod.Update(u)
				n++
			}
		}
	}()

	return prod.Channel
}
