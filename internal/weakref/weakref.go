// Package weakref provides references to objects whose owner may destroy
// them at any time.
//
// The owner of a target creates an Anchor and hands out Refs. A Ref records
// the relation to the target and supports lookup, but confers no ownership:
// once the owner calls Anchor.Invalidate, every Ref derived from that anchor
// reports invalid, together and exactly once, and the anchor drops its hold
// on the target.
//
// Invalidation is atomic with respect to Ref.Do: a callback that started
// before Invalidate completes before Invalidate returns, and no callback
// starts afterwards. This is what lets the object tree deliver a change
// notification to a session that is concurrently being torn down.
//
//	anchor := weakref.New(session)
//	ref := anchor.Ref()
//	...
//	anchor.Invalidate() // teardown
//	ref.Do(func(s *Session) { ... }) // returns false, callback not run
package weakref

import (
	"sync"
	"sync/atomic"
)

// nextID hands out anchor identities.
var nextID atomic.Uint64

// Anchor is the owner-side half of a weak reference. It must be kept by
// (or alongside) the target and invalidated when the target is destroyed.
type Anchor[T any] struct {
	id     uint64
	mu     sync.RWMutex
	target T
	alive  bool
}

// New binds a new anchor to target.
func New[T any](target T) *Anchor[T] {
	return &Anchor[T]{
		id:     nextID.Add(1),
		target: target,
		alive:  true,
	}
}

// Ref returns a reference to the anchored target.
func (a *Anchor[T]) Ref() Ref[T] {
	return Ref[T]{anchor: a}
}

// Make returns a reference bound to the anchor's target. It is equivalent
// to a.Ref().
func Make[T any](a *Anchor[T]) Ref[T] {
	return a.Ref()
}

// Invalidate marks the target destroyed. It waits for in-flight Do
// callbacks, then invalidates every reference and releases the target.
// Calling Invalidate more than once has no further effect.
func (a *Anchor[T]) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.alive {
		return
	}
	a.alive = false
	var zero T
	a.target = zero
}

// Ref is a copyable weak handle. The zero Ref is permanently invalid.
type Ref[T any] struct {
	anchor *Anchor[T]
}

// ID identifies the anchor this reference is bound to. Copies of a Ref
// share the same ID; the zero Ref has ID 0.
func (r Ref[T]) ID() uint64 {
	if r.anchor == nil {
		return 0
	}
	return r.anchor.id
}

// IsValid reports whether the target has not been destroyed yet.
func (r Ref[T]) IsValid() bool {
	if r.anchor == nil {
		return false
	}
	r.anchor.mu.RLock()
	defer r.anchor.mu.RUnlock()
	return r.anchor.alive
}

// Get returns the target and true if it is still valid, or the zero value
// and false. The target may be destroyed right after Get returns; use Do
// when the use itself must not race with destruction.
func (r Ref[T]) Get() (T, bool) {
	var zero T
	if r.anchor == nil {
		return zero, false
	}
	r.anchor.mu.RLock()
	defer r.anchor.mu.RUnlock()
	if !r.anchor.alive {
		return zero, false
	}
	return r.anchor.target, true
}

// Do calls fn with the target while holding off invalidation, and reports
// whether fn ran. fn must not call Invalidate on the same anchor.
func (r Ref[T]) Do(fn func(T)) bool {
	if r.anchor == nil {
		return false
	}
	r.anchor.mu.RLock()
	defer r.anchor.mu.RUnlock()
	if !r.anchor.alive {
		return false
	}
	fn(r.anchor.target)
	return true
}
