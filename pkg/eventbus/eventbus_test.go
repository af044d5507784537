package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Value int
}

type otherEvent struct{}

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	bus := New()

	var got []int
	bus.Subscribe(testEvent{}, func(e interface{}) {
		got = append(got, e.(testEvent).Value)
	})
	bus.Subscribe(testEvent{}, func(e interface{}) {
		got = append(got, e.(testEvent).Value*10)
	})

	bus.PublishSync(testEvent{Value: 7})

	assert.ElementsMatch(t, []int{7, 70}, got)
}

func TestPublish_Async(t *testing.T) {
	bus := New()

	var wg sync.WaitGroup
	wg.Add(1)

	var got int
	bus.Subscribe(testEvent{}, func(e interface{}) {
		got = e.(testEvent).Value
		wg.Done()
	})

	bus.Publish(testEvent{Value: 42})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
	assert.Equal(t, 42, got)
}

func TestPublish_TypeIsolation(t *testing.T) {
	bus := New()

	called := false
	bus.Subscribe(testEvent{}, func(interface{}) { called = true })

	bus.PublishSync(otherEvent{})
	assert.False(t, called)
}

func TestSubscriberCount(t *testing.T) {
	bus := New()

	require.False(t, bus.HasSubscribers(testEvent{}))
	bus.Subscribe(testEvent{}, func(interface{}) {})
	bus.Subscribe(testEvent{}, func(interface{}) {})

	assert.True(t, bus.HasSubscribers(testEvent{}))
	assert.Equal(t, 2, bus.SubscriberCount(testEvent{}))
	assert.Equal(t, 0, bus.SubscriberCount(otherEvent{}))
}
