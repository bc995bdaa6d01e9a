package port

import "github.com/rl1809/marketplace/internal/core/domain"

type EventObserver interface {
	// Observe is called after each marketplace operation, outside any lock.
	// Implementations must not call back into the marketplace.
	Observe(ev domain.Event)
}
