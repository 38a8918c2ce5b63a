package services

import (
	"sort"
	"sync"
)

// Store holds a value and notifies subscribers after every change. Updates are
// applied and delivered one at a time, in order, on the goroutine that made
// them. Listeners must not update the same store synchronously.
type Store[T any] struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     T
	listeners map[int]func(T)
	nextID    int
}

func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{state: initial, listeners: map[int]func(T){}}
}

func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the value.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// UpdateIf applies fn and notifies only when fn reports a change.
func (s *Store[T]) UpdateIf(fn func(T) (T, bool)) (T, bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, changed := fn(s.state)
	if !changed {
		cur := s.state
		s.mu.Unlock()
		return cur, false
	}
	s.state = next
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next, true
}

// Update applies fn to the current value as one atomic step and returns the
// new value. fn must return a new value rather than mutate shared parts of the old one.
func (s *Store[T]) Update(fn func(T) T) T {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state = fn(s.state)
	next := s.state
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// snapshotListeners returns listeners in subscription order. Callers hold mu.
func (s *Store[T]) snapshotListeners() []func(T) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(T), len(ids))
	for i, id := range ids {
		listeners[i] = s.listeners[id]
	}
	return listeners
}
