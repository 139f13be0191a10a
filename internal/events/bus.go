// Package events provides a centralized event bus for the orchestration
// engine. It implements pub/sub with backpressure control and priority
// channels for events that must never be dropped.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Category groups events by the component that emits them.
type Category string

const (
	CategoryOrchestration Category = "orchestration"
	CategoryLane          Category = "lane"
	CategoryTask          Category = "task"
	CategoryRecovery      Category = "recovery"
	CategoryGit           Category = "git"
	CategoryAgent         Category = "agent"
	CategoryState         Category = "state"
	CategorySystem        Category = "system"
)

// Event is the base interface for all events on the bus.
type Event interface {
	EventType() string
	EventCategory() Category
	Timestamp() time.Time
	RunID() string
	LaneName() string // empty for run-scoped (non-lane) events
}

// BaseEvent provides the common fields every event embeds.
type BaseEvent struct {
	Type string    `json:"type"`
	Cat  Category  `json:"category"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"runId"`
	Lane string    `json:"laneName,omitempty"`
}

func (e BaseEvent) EventType() string       { return e.Type }
func (e BaseEvent) EventCategory() Category { return e.Cat }
func (e BaseEvent) Timestamp() time.Time    { return e.Time }
func (e BaseEvent) RunID() string           { return e.Run }
func (e BaseEvent) LaneName() string        { return e.Lane }

// NewBaseEvent creates a new base event for a run-scoped occurrence.
func NewBaseEvent(eventType string, cat Category, runID string) BaseEvent {
	return BaseEvent{Type: eventType, Cat: cat, Time: time.Now(), Run: runID}
}

// NewLaneEvent creates a new base event scoped to a specific lane.
func NewLaneEvent(eventType string, cat Category, runID, laneName string) BaseEvent {
	return BaseEvent{Type: eventType, Cat: cat, Time: time.Now(), Run: runID, Lane: laneName}
}

// Subscriber represents an event subscription.
type Subscriber struct {
	ch       chan Event
	types    map[string]bool // empty means all types
	category Category        // empty means no category filtering
	priority bool
}

// EventBus provides pub/sub with backpressure control.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  []*Subscriber
	prioritySubs []*Subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

// New creates a new EventBus with the specified per-subscriber buffer size.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers:  make([]*Subscriber, 0),
		prioritySubs: make([]*Subscriber, 0),
		bufferSize:   bufferSize,
	}
}

// Subscribe creates a subscription for specific event types across all
// categories. If no types are specified, subscribes to every event.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.SubscribeCategory("", types...)
}

// SubscribeCategory creates a subscription filtered to one category. An
// empty category receives every category. types further narrows by
// event type within that category; empty means all types.
func (eb *EventBus) SubscribeCategory(cat Category, types ...string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	sub := &Subscriber{
		ch:       make(chan Event, eb.bufferSize),
		types:    make(map[string]bool),
		category: cat,
	}
	for _, t := range types {
		sub.types[t] = true
	}
	eb.subscribers = append(eb.subscribers, sub)
	return sub.ch
}

// SubscribePriority creates a priority subscription that never drops
// events, blocking the publisher instead. Use for events that must
// never be lost: lane.failed, orchestration.completed.
func (eb *EventBus) SubscribePriority(cat Category, types ...string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	sub := &Subscriber{
		ch:       make(chan Event, 50), // smaller buffer, blocking send
		types:    make(map[string]bool),
		category: cat,
		priority: true,
	}
	for _, t := range types {
		sub.types[t] = true
	}
	eb.prioritySubs = append(eb.prioritySubs, sub)
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers = removeSubscriber(eb.subscribers, ch)
	eb.prioritySubs = removeSubscriber(eb.prioritySubs, ch)
}

func removeSubscriber(subs []*Subscriber, ch <-chan Event) []*Subscriber {
	result := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.ch != ch {
			result = append(result, sub)
		} else {
			close(sub.ch)
		}
	}
	return result
}

// Publish sends an event to all matching non-priority subscribers.
// Non-priority subscribers may drop events if their buffer is full
// (ring buffer behavior).
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	for _, sub := range eb.subscribers {
		if !eb.shouldDeliver(sub, event) {
			continue
		}
		eb.deliverWithRingBuffer(sub, event)
	}
}

// shouldDeliver checks if an event should be delivered to a subscriber,
// matching its category and type filters.
func (eb *EventBus) shouldDeliver(sub *Subscriber, event Event) bool {
	if sub.category != "" && event.EventCategory() != sub.category {
		return false
	}
	if len(sub.types) > 0 && !sub.types[event.EventType()] {
		return false
	}
	return true
}

// deliverWithRingBuffer attempts to send an event to a subscriber using
// ring buffer behavior. If the channel is full, it drops the oldest
// event and tries again.
func (eb *EventBus) deliverWithRingBuffer(sub *Subscriber, event Event) {
	select {
	case sub.ch <- event:
		// Sent successfully
	default:
		// Buffer full, drop oldest and try again (ring buffer)
		select {
		case <-sub.ch: // Drop oldest
			atomic.AddInt64(&eb.droppedCount, 1)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			atomic.AddInt64(&eb.droppedCount, 1)
		}
	}
}

// PublishPriority sends an event to priority subscribers with blocking
// behavior. Use for critical events that must never be dropped.
func (eb *EventBus) PublishPriority(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	// Also send to regular subscribers.
	for _, sub := range eb.subscribers {
		if !eb.shouldDeliver(sub, event) {
			continue
		}
		eb.deliverWithRingBuffer(sub, event)
	}

	// Send to priority subscribers (blocking), filtered the same way.
	for _, sub := range eb.prioritySubs {
		if !eb.shouldDeliver(sub, event) {
			continue
		}
		sub.ch <- event
	}
}

// DroppedCount returns the total number of dropped events.
func (eb *EventBus) DroppedCount() int64 {
	return atomic.LoadInt64(&eb.droppedCount)
}

// Close closes the event bus and all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, sub := range eb.subscribers {
		close(sub.ch)
	}
	for _, sub := range eb.prioritySubs {
		close(sub.ch)
	}
	eb.subscribers = nil
	eb.prioritySubs = nil
}
