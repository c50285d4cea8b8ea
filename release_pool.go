package relay

import "sync/atomic"

// releaseItem is one entry in a release pool: either a retained object
// or a drain notification hook.
type releaseItem struct {
	obj    any
	notify func()
	next   *releaseItem
}

// drainedMark is the terminal head value. Once installed, the pool
// releases new insertions immediately.
var drainedMark = &releaseItem{}

// ReleasePool holds objects alive until it is drained. Combinators park
// their upstream subscription handle in the downstream primitive's pool
// so the subscription lives exactly as long as the downstream needs it.
// Items release in reverse insertion order. The zero value is ready to
// use.
type ReleasePool struct {
	head atomic.Pointer[releaseItem]
}

// Retain holds obj until the pool drains. On a drained pool the
// reference is dropped immediately.
func (p *ReleasePool) Retain(obj any) {
	for {
		cur := p.head.Load()
		if cur == drainedMark {
			return
		}
		item := &releaseItem{obj: obj, next: cur}
		if p.head.CompareAndSwap(cur, item) {
			return
		}
	}
}

// NotifyDrain registers fn to run when the pool drains. On a drained
// pool fn runs immediately.
func (p *ReleasePool) NotifyDrain(fn func()) {
	for {
		cur := p.head.Load()
		if cur == drainedMark {
			fn()
			return
		}
		item := &releaseItem{notify: fn, next: cur}
		if p.head.CompareAndSwap(cur, item) {
			return
		}
	}
}

// Drain releases every item, newest first, firing notification hooks as
// they release. Idempotent; only the first call walks the list.
func (p *ReleasePool) Drain() {
	cur := p.head.Swap(drainedMark)
	if cur == drainedMark || cur == nil {
		return
	}
	for item := cur; item != nil; item = item.next {
		if item.notify != nil {
			item.notify()
		}
		item.obj = nil
	}
}

// Drained reports whether Drain has been called.
func (p *ReleasePool) Drained() bool {
	return p.head.Load() == drainedMark
}
