package events

import (
	"sync"
)

// Broker manages event distribution.
// Publishing never blocks: subscribers with full channels miss events,
// which is acceptable for status/preview updates that are superseded
// by the next event anyway.
type Broker struct {
	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  16,
	}
}

// Subscribe creates a subscription to specific event types.
// With no types given, the subscription receives all events.
func (b *Broker) Subscribe(eventTypes ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	if len(eventTypes) == 0 {
		eventTypes = []EventType{"*"} // wildcard
	}

	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}

	return ch
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broker) Unsubscribe(ch <-chan Event, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		eventTypes = make([]EventType, 0, len(b.subscribers))
		for eventType := range b.subscribers {
			eventTypes = append(eventTypes, eventType)
		}
	}

	var removed chan Event
	for _, eventType := range eventTypes {
		if got := b.removeChannel(eventType, ch); got != nil {
			removed = got
		}
	}
	if removed != nil {
		close(removed)
	}
}

// Publish sends an event to all subscribers
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, skip this event
		}
	}

	for _, ch := range b.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Shutdown closes all subscriber channels and stops accepting events
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[chan Event]struct{})
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}
			close(ch)
		}
	}
	b.subscribers = make(map[EventType][]chan Event)
}

// removeChannel detaches target from one event type's subscriber list
// and returns the concrete channel so the caller can close it once.
func (b *Broker) removeChannel(eventType EventType, target <-chan Event) chan Event {
	subscribers := b.subscribers[eventType]
	var removed chan Event
	for i, ch := range subscribers {
		if ch == target {
			b.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			removed = ch
			break
		}
	}

	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
	return removed
}
