// Package events publishes run lifecycle notifications to in-process
// subscribers, such as the HTTP event stream.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the per-subscriber queue length used when none is given.
const DefaultBufferSize = 100

// Event is a run lifecycle notification.
type Event interface {
	EventType() string
	Timestamp() time.Time
	RunID() string
}

// BaseEvent carries the fields every run event shares.
type BaseEvent struct {
	Type string    `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"runId"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) RunID() string        { return e.Run }

// NewBaseEvent stamps an event with the wall clock. Event times are for
// observers only and never enter run artifacts.
func NewBaseEvent(eventType, runID string) BaseEvent {
	return BaseEvent{
		Type: eventType,
		Time: time.Now().UTC(),
		Run:  runID,
	}
}

// subscription is one consumer's queue and its type filter.
type subscription struct {
	ch     chan Event
	filter map[string]struct{} // nil accepts every type
}

func (s *subscription) accepts(eventType string) bool {
	if s.filter == nil {
		return true
	}
	_, ok := s.filter[eventType]
	return ok
}

// EventBus fans events out to subscribers. A full queue loses its oldest
// event so publishers never block on a slow subscriber.
type EventBus struct {
	mu         sync.RWMutex
	subs       map[<-chan Event]*subscription
	bufferSize int
	closed     bool

	dropped atomic.Int64
}

// New creates a bus whose subscribers each buffer bufferSize events.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &EventBus{
		subs:       make(map[<-chan Event]*subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. On a closed bus the channel is already
// closed.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	sub := &subscription{ch: make(chan Event, eb.bufferSize)}
	if len(types) > 0 {
		sub.filter = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.filter[t] = struct{}{}
		}
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		close(sub.ch)
		return sub.ch
	}
	eb.subs[sub.ch] = sub
	return sub.ch
}

// Unsubscribe ends a subscription and closes its channel. Unknown channels
// are ignored.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if sub, ok := eb.subs[ch]; ok {
		delete(eb.subs, ch)
		close(sub.ch)
	}
}

// Publish delivers event to every subscriber whose filter accepts it.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}

	eventType := event.EventType()
	for _, sub := range eb.subs {
		if sub.accepts(eventType) {
			eb.deliver(sub, event)
		}
	}
}

// deliver enqueues event, evicting the oldest queued event when full.
func (eb *EventBus) deliver(sub *subscription, event Event) {
	select {
	case sub.ch <- event:
		return
	default:
	}

	select {
	case <-sub.ch:
		eb.dropped.Add(1)
	default:
	}
	select {
	case sub.ch <- event:
	default:
		eb.dropped.Add(1)
	}
}

// DroppedCount returns how many events were lost to full queues.
func (eb *EventBus) DroppedCount() int64 {
	return eb.dropped.Load()
}

// SubscriberCount returns the number of open subscriptions.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for ch, sub := range eb.subs {
		close(sub.ch)
		delete(eb.subs, ch)
	}
}
