package connection_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/tether/internal/connection"
)

type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func TestStream_ReplaysLatestToNewSubscriber(t *testing.T) {
	t.Parallel()
	s := connection.NewStream(false)

	s.Publish(true)

	var late recorder[bool]
	s.Subscribe(late.add)
	assert.Equal(t, []bool{true}, late.all())
}

func TestStream_InitialValue(t *testing.T) {
	t.Parallel()
	s := connection.NewStream(connection.Absent[uint64]())

	var r recorder[connection.Value[uint64]]
	s.Subscribe(r.add)
	assert.Equal(t, []connection.Value[uint64]{connection.Absent[uint64]()}, r.all())
}

func TestStream_EverySubscriberSeesEveryValueInOrder(t *testing.T) {
	t.Parallel()
	s := connection.NewStream(0)

	var a, b recorder[int]
	s.Subscribe(a.add)
	s.Subscribe(b.add)

	for i := 1; i <= 5; i++ {
		s.Publish(i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, a.all())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, b.all())
	assert.Equal(t, 5, s.Latest())
}

func TestStream_Unsubscribe(t *testing.T) {
	t.Parallel()
	s := connection.NewStream("a")

	var r recorder[string]
	unsubscribe := s.Subscribe(r.add)
	assert.Equal(t, 1, s.Subscribers())

	unsubscribe()
	unsubscribe()
	s.Publish("b")

	assert.Equal(t, []string{"a"}, r.all())
	assert.Equal(t, 0, s.Subscribers())
}

func TestStream_ConcurrentPublishersDeliverCompleteHistory(t *testing.T) {
	t.Parallel()
	s := connection.NewStream(0)

	var r recorder[int]
	s.Subscribe(r.add)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Publish(n)
		}(i)
	}
	wg.Wait()

	values := r.all()
	assert.Len(t, values, 51)
	assert.Equal(t, values[len(values)-1], s.Latest())
}
