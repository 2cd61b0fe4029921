package connection

import "sync"

// Stream is a replay-latest broadcast channel. New subscribers receive the
// current value immediately, then every published value in publish order.
// Delivery is synchronous on the publishing goroutine; callbacks must not
// publish to or subscribe on the same stream.
type Stream[T any] struct {
	deliver sync.Mutex // serializes deliveries and subscription replay

	mu     sync.Mutex
	latest T
	subs   map[uint64]func(T)
	nextID uint64
}

// NewStream creates a stream seeded with initial.
func NewStream[T any](initial T) *Stream[T] {
	return &Stream[T]{latest: initial, subs: make(map[uint64]func(T))}
}

// Subscribe registers fn and replays the latest value to it.
// The returned function removes the subscription.
func (s *Stream[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	latest := s.latest
	s.mu.Unlock()

	fn(latest)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish stores v as the latest value and delivers it to every subscriber.
func (s *Stream[T]) Publish(v T) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	s.latest = v
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Latest returns the most recently published value.
func (s *Stream[T]) Latest() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Subscribers returns the number of active subscriptions.
func (s *Stream[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
