// Package session keeps per-user in-memory state with exclusive access per key.
package session

import (
	"sync"
	"time"
)

type slot[T any] struct {
	mu      sync.Mutex
	value   T
	touched time.Time
	dead    bool
}

// Store maps a user key to a value. Operations on one key are serialized;
// different keys never wait on each other beyond the map lookup.
type Store[T any] struct {
	mu    sync.Mutex
	slots map[int64]*slot[T]
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		slots: make(map[int64]*slot[T]),
		now:   time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Store[T]) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store[T]) lookup(key int64, create bool) *slot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok && create {
		sl = &slot[T]{}
		s.slots[key] = sl
	}
	return sl
}

func (s *Store[T]) drop(key int64, sl *slot[T]) {
	s.mu.Lock()
	if s.slots[key] == sl {
		delete(s.slots, key)
	}
	s.mu.Unlock()
}

func (s *Store[T]) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// With runs fn with exclusive access to the value stored under key.
// fn receives the current value and whether it exists, and returns the
// value to store and whether to keep it. Returning keep=false removes the key.
func (s *Store[T]) With(key int64, fn func(cur T, ok bool) (next T, keep bool)) {
	for {
		sl := s.lookup(key, true)
		sl.mu.Lock()
		if sl.dead {
			// swept or removed between lookup and lock
			sl.mu.Unlock()
			continue
		}
		fresh := sl.touched.IsZero()
		next, keep := fn(sl.value, !fresh)
		if keep {
			sl.value = next
			sl.touched = s.clock()
		} else {
			var zero T
			sl.value = zero
			sl.dead = true
			s.drop(key, sl)
		}
		sl.mu.Unlock()
		return
	}
}

// Get returns a copy of the stored value.
func (s *Store[T]) Get(key int64) (T, bool) {
	var (
		out   T
		found bool
	)
	sl := s.lookup(key, false)
	if sl == nil {
		return out, false
	}
	sl.mu.Lock()
	if !sl.dead && !sl.touched.IsZero() {
		out, found = sl.value, true
	}
	sl.mu.Unlock()
	return out, found
}

// Put stores v under key, replacing any previous value.
func (s *Store[T]) Put(key int64, v T) {
	s.With(key, func(T, bool) (T, bool) { return v, true })
}

// Delete removes key and reports whether a value was present.
func (s *Store[T]) Delete(key int64) bool {
	var existed bool
	s.With(key, func(cur T, ok bool) (T, bool) {
		existed = ok
		return cur, false
	})
	return existed
}

// Has reports whether key holds a value.
func (s *Store[T]) Has(key int64) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of stored keys.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Sweep removes values untouched for longer than idle and returns how many
// were evicted. Keys that are busy at the time of the sweep are skipped.
func (s *Store[T]) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	evicted := 0
	for key, sl := range s.slots {
		if !sl.mu.TryLock() {
			continue
		}
		if sl.touched.IsZero() || sl.touched.Before(cutoff) {
			sl.dead = true
			var zero T
			sl.value = zero
			delete(s.slots, key)
			evicted++
		}
		sl.mu.Unlock()
	}
	return evicted
}
