package observe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestSubscribeReplaysLatest(t *testing.T) {
	s := NewSubject(1)
	s.Publish(2)

	ch, cancel := s.Subscribe()
	defer cancel()

	assert.Equal(t, 2, receive(t, ch))
	assert.Equal(t, 2, s.Value())
}

func TestSlowSubscriberGetsLatest(t *testing.T) {
	s := NewSubject("idle")
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Publish("generating")
	s.Publish("success")

	assert.Equal(t, "success", receive(t, ch))
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %q", v)
	default:
	}
}

func TestUpdateConditional(t *testing.T) {
	s := NewSubject(10)

	published := s.Update(func(v int) (int, bool) { return v + 1, v < 5 })
	assert.False(t, published)
	assert.Equal(t, 10, s.Value())

	published = s.Update(func(v int) (int, bool) { return v + 1, true })
	assert.True(t, published)
	assert.Equal(t, 11, s.Value())
}

func TestCancelClosesChannel(t *testing.T) {
	s := NewSubject(0)
	ch, cancel := s.Subscribe()
	assert.Equal(t, 1, s.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, s.Subscribers())

	<-ch // replayed value
	_, ok := <-ch
	assert.False(t, ok)

	s.Publish(1)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	s := NewSubject(0)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Close()
	s.Publish(5)
	assert.Equal(t, 0, s.Value())

	<-ch
	_, ok := <-ch
	assert.False(t, ok)

	late, lateCancel := s.Subscribe()
	defer lateCancel()
	_, ok = <-late
	assert.False(t, ok)
}

func TestConcurrentPublishers(t *testing.T) {
	s := NewSubject(0)
	ch, cancel := s.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(func(v int) (int, bool) { return v + 1, true })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Value())
	assert.Equal(t, 800, receive(t, ch))
}
