// Package bus provides the in-process event bus used to fan out cache events
// to the TUI and other listeners.
package bus

import (
	"sync"

	"hexmap/internal/domain"
	"hexmap/internal/ports"
)

// Bus is a synchronous in-memory event bus. Emit delivers to every active
// subscriber on the caller's goroutine, in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.Event)
}

var _ ports.EventBus = (*Bus)(nil)

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]func(domain.Event))}
}

// Emit delivers the event to every subscriber.
func (b *Bus) Emit(event domain.Event) {
	b.mu.Lock()
	handlers := make([]func(domain.Event), 0, len(b.subs))
	for id := 0; id < b.nextID; id++ {
		if fn, ok := b.subs[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}

// Subscribe registers a handler and returns its cancel function. Cancel is
// idempotent.
func (b *Bus) Subscribe(fn func(domain.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// SubscribeIgnoring registers a handler that drops events tagged with the
// given source. Components use it to skip their own echoes.
func SubscribeIgnoring(b ports.EventBus, source string, fn func(domain.Event)) func() {
	return b.Subscribe(func(event domain.Event) {
		if event.Source == source {
			return
		}
		fn(event)
	})
}
