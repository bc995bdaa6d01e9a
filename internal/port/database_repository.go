package port

import (
	"context"

	"github.com/rl1809/marketplace/internal/core/domain"
)

type OrderRepository interface {
	// SaveOrder persists a placed order and its lines in one transaction
	SaveOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order by ID, nil when absent
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}
