package events

import (
	"context"
	"sync"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
)

// MemoryEventBus is an in-process EventBus for single-instance
// deployments without Redis. Slow subscribers drop events rather than
// block publishers.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *entities.QueueEvent
	closed      bool
}

// NewMemoryEventBus creates a new in-process event bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string][]chan *entities.QueueEvent),
	}
}

// Publish delivers the event to every subscriber of the channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	for _, ch := range b.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving events published to the channel
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.QueueEvent, error) {
	ch := make(chan *entities.QueueEvent, 10)

	b.mu.Lock()
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	b.mu.Unlock()

	return ch, nil
}

// Unsubscribe removes all subscriptions for the channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[channel] {
		close(ch)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close shuts down the bus and closes all subscriber channels
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subscribers = make(map[string][]chan *entities.QueueEvent)
	return nil
}

var _ providers.EventBus = (*MemoryEventBus)(nil)
