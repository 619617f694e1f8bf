package adapter

import (
	"sync"
	"time"
)

// EventKind names a lifecycle event.
type EventKind string

const (
	EventConnecting      EventKind = "connecting"
	EventConnected       EventKind = "connected"
	EventReady           EventKind = "ready"
	EventDisconnected    EventKind = "disconnected"
	EventError           EventKind = "error"
	EventReconnectFailed EventKind = "reconnectFailed"
	EventClosed          EventKind = "closed"
)

// eventBufferSize is the capacity of each subscriber channel.
const eventBufferSize = 100

// Event is a lifecycle notification published by an Adapter.
// URI is set for connecting, connected, disconnected, reconnectFailed and closed;
// Err is set for error.
type Event struct {
	Kind      EventKind
	AdapterID string
	Adapter   string
	URI       string
	Err       error
	Time      time.Time
}

// eventBus fans events out to subscriber channels.
type eventBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	next        int
}

func newEventBus() *eventBus {
	return &eventBus{
		subscribers: make(map[int]chan Event),
	}
}

// subscribe returns a channel receiving every published event and a
// function that unsubscribes and closes it.
func (b *eventBus) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, eventBufferSize)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *eventBus) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			// Skip if channel is full
		}
	}
}
