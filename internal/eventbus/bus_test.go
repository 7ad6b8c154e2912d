package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewWithConfig(2, 16)

	var mu sync.Mutex
	var got []string
	b.Subscribe(EventTypeActionStarted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["action"].(string))
	})

	b.Publish(Event{Type: EventTypeActionStarted, Data: map[string]any{"action": "shoot"}})
	b.Publish(Event{Type: EventTypeActionEnded, Data: map[string]any{"action": "ignored"}})
	b.Close(context.Background())

	assert.Equal(t, []string{"shoot"}, got)
	assert.Zero(t, b.Dropped())
}

func TestHandlerPanicDoesNotKillWorker(t *testing.T) {
	b := NewWithConfig(1, 16)

	var count int
	b.Subscribe(EventTypeModeChanged, func(e Event) {
		count++
		if e.Data["panic"] == true {
			panic("bad handler")
		}
	})

	b.Publish(Event{Type: EventTypeModeChanged, Data: map[string]any{"panic": true}})
	b.Publish(Event{Type: EventTypeModeChanged, Data: map[string]any{}})
	b.Close(context.Background())

	assert.Equal(t, 2, count)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	b := NewWithConfig(1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	b.Subscribe(EventTypeActionEnded, func(Event) {
		once.Do(func() { close(started) })
		<-release
	})

	b.Publish(Event{Type: EventTypeActionEnded})
	<-started // the worker is busy with the first event

	b.Publish(Event{Type: EventTypeActionEnded}) // queued
	b.Publish(Event{Type: EventTypeActionEnded}) // dropped
	require.Equal(t, uint64(1), b.Dropped())

	close(release)
	b.Close(context.Background())
}

func TestPublishAfterClose(t *testing.T) {
	b := NewWithConfig(1, 4)
	b.Subscribe(EventTypeModeChanged, func(Event) {})
	b.Close(context.Background())
	b.Close(context.Background())

	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventTypeModeChanged})
	})
	assert.Equal(t, uint64(1), b.Dropped())
}
