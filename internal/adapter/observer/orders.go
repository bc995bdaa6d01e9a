package observer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
	"github.com/rl1809/marketplace/pkg/logger"
)

const saveTimeout = 5 * time.Second

// OrderDispatcher turns order_placed events into domain.Order records and
// queues them for a pool of workers that write them to an OrderRepository.
type OrderDispatcher struct {
	repo  port.OrderRepository
	log   *logger.Logger
	queue chan domain.Order
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	saved   atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

type DispatcherStats struct {
	Saved   uint64
	Dropped uint64
	Failed  uint64
}

func NewOrderDispatcher(repo port.OrderRepository, queueSize int, log *logger.Logger) *OrderDispatcher {
	return &OrderDispatcher{
		repo:  repo,
		log:   log.Named("order-dispatcher"),
		queue: make(chan domain.Order, queueSize),
		now:   time.Now,
	}
}

func (d *OrderDispatcher) Observe(ev domain.Event) {
	if ev.Kind != domain.EventOrderPlaced || !ev.OK {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = d.now()
	}
	order := domain.Order{
		ID:        uuid.NewString(),
		CartID:    ev.Cart,
		Lines:     ev.Lines,
		Status:    domain.OrderStatusPlaced,
		CreatedAt: at,
		UpdatedAt: at,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- order:
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("order_id", order.ID).Uint32("cart", uint32(order.CartID)).Msg("order queue full, record dropped")
	}
}

// Start launches n workers draining the queue.
func (d *OrderDispatcher) Start(n int) {
	for i := 0; i < n; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.log.Info().Int("workers", n).Msg("order workers started")
}

func (d *OrderDispatcher) workerLoop(id int) {
	for order := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)

		if err := d.repo.SaveOrder(ctx, order); err != nil {
			d.failed.Add(1)
			d.log.Error().Err(err).Int("worker", id).Str("order_id", order.ID).
				Int("lines", len(order.Lines)).Msg("failed to save order")
		} else {
			d.saved.Add(1)
			d.log.Debug().Int("worker", id).Str("order_id", order.ID).Msg("saved order")
		}

		cancel()
	}
}

// Close stops accepting orders and waits for the workers to drain the queue.
func (d *OrderDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *OrderDispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Saved:   d.saved.Load(),
		Dropped: d.dropped.Load(),
		Failed:  d.failed.Load(),
	}
}

// MemoryOrderRepository keeps recorded orders in memory. It backs the
// dispatcher when no MySQL DSN is configured, and the tests.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

var errDuplicateOrder = errors.New("order already recorded")

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]domain.Order)}
}

func (m *MemoryOrderRepository) SaveOrder(_ context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return errDuplicateOrder
	}
	order.Status = domain.OrderStatusRecorded
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryOrderRepository) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *MemoryOrderRepository) All() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out
}
