package relay

import "sync"

// Zipped is the paired result of two futures.
type Zipped[A, B any] struct {
	First  A
	Second B
}

// Zip completes with both values once fa and fb both succeed, or with
// the first failure of either. The at-most-once completion of the
// returned future arbitrates races between the two upstreams.
func Zip[A, B any](fa *Future[A], fb *Future[B], opts ...Option) *Future[Zipped[A, B]] {
	o := newOptions(opts)
	p := NewPromise[Zipped[A, B]]()
	if o.token != nil {
		o.token.Add(p)
	}

	var mu sync.Mutex
	var av *A
	var bv *B

	ready := func() (Zipped[A, B], bool) {
		mu.Lock()
		defer mu.Unlock()
		if av == nil || bv == nil {
			return Zipped[A, B]{}, false
		}
		return Zipped[A, B]{First: *av, Second: *bv}, true
	}

	subA := fa.OnComplete(Immediate(), func(r Result[A]) {
		v, err := r.Get()
		if err != nil {
			p.Reject(err)
			return
		}
		mu.Lock()
		av = &v
		mu.Unlock()
		if z, ok := ready(); ok {
			p.Resolve(z)
		}
	})
	subB := fb.OnComplete(Immediate(), func(r Result[B]) {
		v, err := r.Get()
		if err != nil {
			p.Reject(err)
			return
		}
		mu.Lock()
		bv = &v
		mu.Unlock()
		if z, ok := ready(); ok {
			p.Resolve(z)
		}
	})
	tether(&p.fut.pool, subA)
	tether(&p.fut.pool, subB)
	return p.fut
}

// Join completes with the successes of every future in input order, or
// with the first failure among them. An empty input resolves
// immediately with an empty slice.
func Join[T any](futures []*Future[T], opts ...Option) *Future[[]T] {
	o := newOptions(opts)
	p := NewPromise[[]T]()
	if o.token != nil {
		o.token.Add(p)
	}
	if len(futures) == 0 {
		p.Resolve(nil)
		return p.fut
	}

	var mu sync.Mutex
	results := make([]T, len(futures))
	remaining := len(futures)

	for i, f := range futures {
		sub := f.OnComplete(Immediate(), func(r Result[T]) {
			v, err := r.Get()
			if err != nil {
				p.Reject(err)
				return
			}
			mu.Lock()
			results[i] = v
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				p.Resolve(results)
			}
		})
		tether(&p.fut.pool, sub)
	}
	return p.fut
}
