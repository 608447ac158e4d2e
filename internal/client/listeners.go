package client

import "sync"

// listenerSet is a broadcast registry. Listeners are invoked in registration
// order; a panicking listener does not prevent delivery to the rest.
// Unregistration is idempotent.
type listenerSet[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
	ids  []int
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{fns: make(map[int]func(T))}
}

// add registers a listener and returns its unregister func.
func (s *listenerSet[T]) add(fn func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.fns[id] = fn
	s.ids = append(s.ids, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.fns[id]; !ok {
			return
		}
		delete(s.fns, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
	}
}

// notify invokes every registered listener with v, isolating panics.
func (s *listenerSet[T]) notify(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.ids))
	for _, id := range s.ids {
		fns = append(fns, s.fns[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		invoke(fn, v)
	}
}

func invoke[T any](fn func(T), v T) {
	defer func() {
		recover() // a misbehaving listener must not break the others
	}()
	fn(v)
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
