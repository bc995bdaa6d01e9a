package port

import (
	"context"

	"github.com/rl1809/marketplace/internal/core/domain"
)

type EventStore interface {
	// Record increments the counters for one event; callers treat errors as best effort
	Record(ctx context.Context, ev domain.Event) error

	// Counters returns the "<kind>:<outcome>" totals recorded so far
	Counters(ctx context.Context) (map[string]int64, error)
}
