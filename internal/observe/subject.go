// Package observe provides a latest-value subject for pushing state to
// any number of subscribers.
package observe

import "sync"

// Subject holds the latest value of T and notifies subscribers on change.
// Subscribers receive the current value immediately. Slow subscribers skip
// intermediate values but always end up with the latest one.
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]chan T
	nextID uint64
	closed bool
}

// NewSubject creates a subject seeded with initial
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{
		value: initial,
		subs:  make(map[uint64]chan T),
	}
}

// Value returns the latest published value
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Publish replaces the value and notifies subscribers
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(v)
}

// Update applies fn to the current value atomically. The result is published
// only when fn returns true. It reports whether a publish happened.
func (s *Subject[T]) Update(fn func(current T) (T, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := fn(s.value)
	if !ok {
		return false
	}
	s.publishLocked(next)
	return true
}

func (s *Subject[T]) publishLocked(v T) {
	if s.closed {
		return
	}
	s.value = v
	for _, ch := range s.subs {
		deliver(ch, v)
	}
}

// deliver replaces any undelivered value in the buffered channel with v
func deliver[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Subscribe returns a channel that receives the current value and every
// subsequent one. The cancel func is idempotent and closes the channel.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.value

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
