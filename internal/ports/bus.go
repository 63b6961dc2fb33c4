package ports

import "hexmap/internal/domain"

// EventBus is the external publish/subscribe surface. Emissions carry a
// source tag; "ignore my own events" is an explicit subscriber-side filter,
// not incidental string comparison.
type EventBus interface {
	Emit(event domain.Event)
	// Subscribe registers a handler and returns its cancel function.
	Subscribe(fn func(domain.Event)) (cancel func())
}
