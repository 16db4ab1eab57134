package service

import (
	"sync"

	"dashv/internal/domain"
)

// Publisher receives service change notifications
type Publisher interface {
	Publish(event domain.ChangeEvent)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(domain.ChangeEvent)

// Publish implements Publisher
func (f PublisherFunc) Publish(event domain.ChangeEvent) { f(event) }

// EventBus fans change events out to subscriber channels
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- domain.ChangeEvent
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- domain.ChangeEvent, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- domain.ChangeEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber
func (eb *EventBus) Unsubscribe(ch chan<- domain.ChangeEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event domain.ChangeEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
