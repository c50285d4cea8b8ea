package relay

import "sync"

// Distinct suppresses updates equal to their predecessor under eq. The
// first update always passes; the completion passes through unchanged.
func Distinct[U, S any](ch *Channel[U, S], eq func(prev, curr U) bool, opts ...Option) *Channel[U, S] {
	o := newOptions(opts)
	prod := NewProducer[U, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}

	var mu sync.Mutex
	var prev *U

	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			mu.Lock()
			last := prev
			pass := last == nil || !eq(*last, u)
			if pass {
				prev = &u
			}
			mu.Unlock()
			if pass {
				prod.Update(u)
			}
			return
		}
		r, _ := e.Completion()
		prod.TryComplete(r)
	})
	tether(&prod.pool, sub)
	return prod.Channel
}

// DistinctComparable is Distinct with == as the equality.
func DistinctComparable[U comparable, S any](ch *Channel[U, S], opts ...Option) *Channel[U, S] {
	return Distinct(ch, func(prev, curr U) bool { return prev == curr }, opts...)
}

// DistinctPointers is Distinct over optional values: two nils are
// equal, a nil and a non-nil are not, and two non-nils compare by
// pointee.
func DistinctPointers[U comparable, S any](ch *Channel[*U, S], opts ...Option) *Channel[*U, S] {
	return Distinct(ch, func(prev, curr *U) bool {
		if prev == nil || curr == nil {
			return prev == curr
		}
		return *prev == *curr
	}, opts...)
}

// DistinctSlices is Distinct over slices of comparable elements,
// comparing element-wise.
func DistinctSlices[U comparable, S any](ch *Channel[[]U, S], opts ...Option) *Channel[[]U, S] {
	return Distinct(ch, func(prev, curr []U) bool {
		if len(prev) != len(curr) {
			return false
		}
		for i := range prev {
			if prev[i] != curr[i] {
				return false
			}
		}
		return true
	}, opts...)
}
