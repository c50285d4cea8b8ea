package relay

import "sync/atomic"

// Numbered is an update paired with its zero-based position in the
// stream.
type Numbered[U any] struct {
	Index uint64
	Value U
}

// Enumerated attaches a monotonically increasing zero-based index to
// each update of ch. The counter is atomic; indexes follow upstream
// production order.
func Enumerated[U, S any](ch *Channel[U, S], opts ...Option) *Channel[Numbered[U], S] {
	var counter atomic.Uint64
	return Transform(ch, func(u U) (Numbered[U], error) {
		return Numbered[U]{Index: counter.Add(1) - 1, Value: u}, nil
	}, opts...)
}
