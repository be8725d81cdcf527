// Package store provides the observable container a state machine commits
// its snapshots to. A Store holds one value, exposes it through Get, replaces
// it through Set and notifies subscribers after every replacement.
//
// Notifications are delivered in commit order by one goroutine at a time.
// A listener may call Set on the same store; the nested commit is announced
// once the current listener round is over. Hold postpones delivery while a
// caller finishes work that must not be interleaved with listeners.
//
// Commits can be wrapped by middleware. Middleware is composed once, when the
// store is created, so the chain is fixed for the lifetime of the store:
//
//	s := store.New(0,
//		store.Logger[int](logger), // outermost
//		clamp,                     // innermost, calls the real commit
//	)
package store

import (
	"sync"

	"github.com/enetx/g"
)

type (
	// GetFunc reads the value currently held by a store.
	GetFunc[T any] func() T
	// SetFunc commits a new value.
	SetFunc[T any] func(next T)
	// Listener is notified after a commit with the new and the replaced value.
	Listener[T any] func(next, prev T)
	// Middleware wraps a commit function. It may observe, transform or drop
	// the value before calling set.
	Middleware[T any] func(set SetFunc[T], get GetFunc[T]) SetFunc[T]
)

type subscriber[T any] struct {
	id int
	fn Listener[T]
}

type notice[T any] struct {
	next, prev T
}

// Store is a concurrency-safe observable value.
type Store[T any] struct {
	value   T
	version uint64
	set     SetFunc[T]
	subs    g.Slice[*subscriber[T]]
	nextID  int

	pending     []notice[T]
	holds       int
	dispatching bool

	mu     sync.RWMutex
	subMu  sync.RWMutex
	noteMu sync.Mutex
}

// New creates a store holding initial. The first middleware is the outermost
// layer; the last one wraps the base commit directly.
func New[T any](initial T, middleware ...Middleware[T]) *Store[T] {
	s := &Store[T]{value: initial}

	set := SetFunc[T](s.commit)
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] != nil {
			set = middleware[i](set, s.Get)
		}
	}

	s.set = set

	return s
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.value
}

// Version returns the number of commits made so far. Middleware that drops a
// value leaves it unchanged.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Set passes next through the middleware chain and commits it. Listeners are
// notified before Set returns unless the store is held or another goroutine
// is already delivering notifications.
func (s *Store[T]) Set(next T) {
	s.set(next)
	s.flush()
}

// Hold postpones listener notifications until the returned function is
// called. Holds nest; commits made meanwhile are delivered in order once the
// last hold is released. The release function is safe to call more than once.
func (s *Store[T]) Hold() func() {
	s.noteMu.Lock()
	s.holds++
	s.noteMu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			s.noteMu.Lock()
			s.holds--
			s.noteMu.Unlock()

			s.flush()
		})
	}
}

// Subscribe registers fn for commit notifications. The returned function
// removes it and is safe to call more than once.
func (s *Store[T]) Subscribe(fn Listener[T]) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs.Push(&subscriber[T]{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()

		s.subs = s.subs.Iter().Exclude(func(sub *subscriber[T]) bool { return sub.id == id }).Collect()
	}
}

// commit is the innermost SetFunc. The notice is queued under the value lock
// so notices keep commit order.
func (s *Store[T]) commit(next T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.value
	s.value = next
	s.version++

	s.noteMu.Lock()
	s.pending = append(s.pending, notice[T]{next: next, prev: prev})
	s.noteMu.Unlock()
}

// flush delivers queued notices. Listeners run without any store lock held,
// so they can read the store, subscribe and commit.
func (s *Store[T]) flush() {
	s.noteMu.Lock()
	if s.holds > 0 || s.dispatching {
		s.noteMu.Unlock()
		return
	}

	s.dispatching = true
	s.noteMu.Unlock()

	done := false
	defer func() {
		if !done {
			s.noteMu.Lock()
			s.dispatching = false
			s.noteMu.Unlock()
		}
	}()

	for {
		s.noteMu.Lock()
		if len(s.pending) == 0 {
			s.dispatching = false
			done = true
			s.noteMu.Unlock()

			return
		}

		n := s.pending[0]
		s.pending = s.pending[1:]
		s.noteMu.Unlock()

		s.subMu.RLock()
		subs := s.subs.Clone()
		s.subMu.RUnlock()

		for sub := range subs.Iter() {
			sub.fn(n.next, n.prev)
		}
	}
}
