package services

import (
	"sort"
	"sync"
)

// Selection is the set of song keys marked for action, plus whether
// selection mode is on.
type Selection struct {
	mu     sync.Mutex
	active bool
	keys   map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{keys: map[string]struct{}{}}
}

// Enter turns selection mode on with a fresh set, optionally marking an
// initial key.
func (s *Selection) Enter(initial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.keys = map[string]struct{}{}
	if initial != "" {
		s.keys[initial] = struct{}{}
	}
}

// Exit turns selection mode off and clears the set.
func (s *Selection) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.keys = map[string]struct{}{}
}

// Toggle flips key and reports whether it is now selected.
func (s *Selection) Toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *Selection) IsSelected(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *Selection) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// IDs returns the selected keys sorted.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.keys))
	for k := range s.keys {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// Clear empties the set but keeps selection mode as is.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = map[string]struct{}{}
}

func (s *Selection) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
