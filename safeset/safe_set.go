// Package safeset provides a thread-safe set of unique comparable elements.
package safeset

import (
	"sort"
	"sync"
)

// SafeSet is a set of unique elements of comparable type T, safe for
// concurrent use by multiple goroutines.
type SafeSet[T comparable] struct {
	m map[T]struct{}
	sync.RWMutex
}

// NewSafeSet creates and returns a new empty SafeSet.
func NewSafeSet[T comparable]() *SafeSet[T] {
	return &SafeSet[T]{m: make(map[T]struct{})}
}

// Add adds an element to the set.
func (s *SafeSet[T]) Add(value T) {
	s.Lock()
	defer s.Unlock()
	s.m[value] = struct{}{}
}

// Remove removes an element from the set; a no-op if absent.
func (s *SafeSet[T]) Remove(value T) {
	s.Lock()
	defer s.Unlock()
	delete(s.m, value)
}

// Contains reports whether the set contains the given element.
func (s *SafeSet[T]) Contains(value T) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.m[value]
	return ok
}

// Size returns the number of elements in the set.
func (s *SafeSet[T]) Size() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.m)
}

// Values returns the elements as a new slice, in unspecified order.
func (s *SafeSet[T]) Values() []T {
	s.RLock()
	defer s.RUnlock()
	values := make([]T, 0, len(s.m))
	for k := range s.m {
		values = append(values, k)
	}
	return values
}

// ReplaceAll atomically replaces the set's contents with the given values.
func (s *SafeSet[T]) ReplaceAll(values []T) {
	next := make(map[T]struct{}, len(values))
	for _, v := range values {
		next[v] = struct{}{}
	}

	s.Lock()
	defer s.Unlock()
	s.m = next
}

// Range calls f for each element until f returns false. Behavior is
// undefined if f modifies the set.
func (s *SafeSet[T]) Range(f func(value T) bool) {
	s.RLock()
	defer s.RUnlock()
	for k := range s.m {
		if !f(k) {
			break
		}
	}
}

// SortedStrings returns the elements of a string set in ascending order.
func SortedStrings(s *SafeSet[string]) []string {
	values := s.Values()
	sort.Strings(values)
	return values
}
