package relay

// Transform maps each update of ch through fn, producing a new channel.
// A returned error or panic in fn closes the downstream with that
// failure; the upstream completion passes through unchanged. fn runs
// inline on the upstream dispatch path.
func Transform[U, V, S any](ch *Channel[U, S], fn func(U) (V, error), opts ...Option) *Channel[V, S] {
	o := newOptions(opts)
	prod := NewProducer[V, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}
	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			r := capture(func() (V, error) { return fn(u) })
			if v, ok := r.Value(); ok {
				prod.Update(v)
			} else {
				prod.Fail(r.Err())
			}
			return
		}
		r, _ := e.Completion()
		prod.TryComplete(r)
	})
	tether(&prod.pool, sub)
	return prod.Channel
}

// RecoverCompletion maps a failed completion of ch through fn,
// converting it back to a success (or a different failure). Updates and
// successful completions pass through unchanged.
func RecoverCompletion[U, S any](ch *Channel[U, S], fn func(error) (S, error), opts ...Option) *Channel[U, S] {
	o := newOptions(opts)
	prod := NewProducer[U, S](ch.replaySize())
	if o.token != nil {
		o.token.Add(prod)
	}
	sub := ch.OnEvent(Immediate(), func(e Event[U, S]) {
		if u, ok := e.Update(); ok {
			prod.Update(u)
			return
		}
		r, _ := e.Completion()
		prod.TryComplete(r.Recover(fn))
	})
	tether(&prod.pool, sub)
	return prod.Channel
}

// TransformFuture maps the successful result of f through fn. Failures
// pass through unchanged; a returned error or panic in fn fails the
// returned future.
func TransformFuture[T, U any](f *Future[T], fn func(T) (U, error), opts ...Option) *Future[U] {
	o := newOptions(opts)
	p := NewPromise[U]()
	if o.token != nil {
		o.token.Add(p)
	}
	sub := f.OnComplete(Immediate(), func(r Result[T]) {
		p.TryComplete(MapResult(r, fn))
	})
	tether(&p.fut.pool, sub)
	return p.fut
}

// TransformResult maps the full terminal result of f through fn,
// seeing successes and failures alike. A panic in fn fails the
// returned future with a PanicError.
func TransformResult[T, U any](f *Future[T], fn func(Result[T]) Result[U], opts ...Option) *Future[U] {
	o := newOptions(opts)
	p := NewPromise[U]()
	if o.token != nil {
		o.token.Add(p)
	}
	sub := f.OnComplete(Immediate(), func(r Result[T]) {
		out := capture(func() (Result[U], error) {
			return fn(r), nil
		})
		if inner, ok := out.Value(); ok {
			p.TryComplete(inner)
		} else {
			p.TryComplete(Failure[U](out.Err()))
		}
	})
	tether(&p.fut.pool, sub)
	return p.fut
}

// RecoverFuture maps a failed result of f through fn, converting it
// back to a success (or a different failure). Successes pass through
// unchanged.
func RecoverFuture[T any](f *Future[T], fn func(error) (T, error), opts ...Option) *Future[T] {
	o := newOptions(opts)
	p := NewPromise[T]()
	if o.token != nil {
		o.token.Add(p)
	}
	sub := f.OnComplete(Immediate(), func(r Result[T]) {
		p.TryComplete(r.Recover(fn))
	})
	tether(&p.fut.pool, sub)
	return p.fut
}
