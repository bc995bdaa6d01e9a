package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/port"
)

// Marketplace is the single entry point shared by producers and consumers.
// None of its operations block waiting for availability: a false result
// means "retry later".
type Marketplace struct {
	capacity  int
	producers *producerRegistry
	pool      *inventoryPool
	carts     *cartRegistry
	observer  port.EventObserver
	now       func() time.Time
}

type Option func(*options)

type options struct {
	observer    port.EventObserver
	cartIDSpace uint32
	newToken    func() uuid.UUID
	now         func() time.Time
}

func WithObserver(o port.EventObserver) Option {
	return func(opts *options) { opts.observer = o }
}

// WithCartIDSpace bounds cart ids to [0, space).
func WithCartIDSpace(space uint32) Option {
	return func(opts *options) { opts.cartIDSpace = space }
}

func withTokenSource(fn func() uuid.UUID) Option {
	return func(opts *options) { opts.newToken = fn }
}

func NewMarketplace(queueSizePerProducer int, opts ...Option) (*Marketplace, error) {
	if queueSizePerProducer <= 0 {
		return nil, fmt.Errorf("queue size %d: %w", queueSizePerProducer, domain.ErrInvalidCapacity)
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	producers := newProducerRegistry(queueSizePerProducer)
	return &Marketplace{
		capacity:  queueSizePerProducer,
		producers: producers,
		pool:      newInventoryPool(producers),
		carts:     newCartRegistry(o.cartIDSpace, o.newToken),
		observer:  o.observer,
		now:       o.now,
	}, nil
}

func (m *Marketplace) RegisterProducer() domain.ProducerID {
	id := m.producers.Register()
	m.notify(domain.Event{Kind: domain.EventProducerRegistered, Producer: id, OK: true})
	return id
}

// Publish returns false when the producer already has queueSizePerProducer
// items in the marketplace.
func (m *Marketplace) Publish(producer domain.ProducerID, item domain.Item) (bool, error) {
	ok, err := m.pool.Publish(item, producer)
	if err != nil {
		return false, err
	}
	m.notify(domain.Event{Kind: domain.EventPublished, Producer: producer, Item: item, OK: ok})
	return ok, nil
}

func (m *Marketplace) NewCart() (domain.CartID, error) {
	id, err := m.carts.New()
	if err != nil {
		return 0, err
	}
	m.notify(domain.Event{Kind: domain.EventCartCreated, Cart: id, OK: true})
	return id, nil
}

// AddToCart moves the first available unit equal to item into the cart. It
// returns false when no such unit is available.
func (m *Marketplace) AddToCart(cartID domain.CartID, item domain.Item) (bool, error) {
	c, err := m.carts.get(cartID)
	if err != nil {
		return false, err
	}

	entry, found, err := m.pool.Take(item)
	if err != nil {
		return false, err
	}
	if !found {
		m.notify(domain.Event{Kind: domain.EventAddedToCart, Cart: cartID, Item: item})
		return false, nil
	}

	if err := c.stage(cartID, entry); err != nil {
		// cart was ordered concurrently; the unit goes back on sale
		if rerr := m.pool.Return(entry); rerr != nil {
			return false, fmt.Errorf("%w (restore: %v)", err, rerr)
		}
		return false, err
	}

	m.notify(domain.Event{
		Kind:     domain.EventAddedToCart,
		Cart:     cartID,
		Producer: entry.Producer,
		Item:     entry.Item,
		OK:       true,
	})
	return true, nil
}

// RemoveFromCart puts the first staged unit equal to item back on sale.
// Removing an item that is not in the cart is a no-op.
func (m *Marketplace) RemoveFromCart(cartID domain.CartID, item domain.Item) error {
	entry, found, err := m.carts.Unstage(cartID, item)
	if err != nil {
		return err
	}
	if !found {
		m.notify(domain.Event{Kind: domain.EventRemovedFromCart, Cart: cartID, Item: item})
		return nil
	}

	if err := m.pool.Return(entry); err != nil {
		return err
	}

	m.notify(domain.Event{
		Kind:     domain.EventRemovedFromCart,
		Cart:     cartID,
		Producer: entry.Producer,
		Item:     entry.Item,
		OK:       true,
	})
	return nil
}

// PlaceOrder returns the staged units in the order they were added and
// retires the cart. Ordering the same cart twice fails with ErrUnknownCart.
func (m *Marketplace) PlaceOrder(cartID domain.CartID) ([]domain.Entry, error) {
	lines, err := m.carts.Drain(cartID)
	if err != nil {
		return nil, err
	}

	m.notify(domain.Event{
		Kind:  domain.EventOrderPlaced,
		Cart:  cartID,
		Lines: append([]domain.Entry(nil), lines...),
		OK:    true,
	})
	return lines, nil
}

func (m *Marketplace) Occupancy(producer domain.ProducerID) (int, error) {
	return m.producers.Occupancy(producer)
}

func (m *Marketplace) Snapshot() domain.Snapshot {
	available, occupancy := m.pool.snapshot()
	return domain.Snapshot{
		Capacity:  m.capacity,
		Occupancy: occupancy,
		Available: available,
		Carts:     m.carts.snapshot(),
	}
}

func (m *Marketplace) notify(ev domain.Event) {
	if m.observer == nil {
		return
	}
	ev.At = m.now()
	m.observer.Observe(ev)
}
