package service

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rl1809/marketplace/internal/core/domain"
)

type slotCounter struct {
	occupied atomic.Int64
}

// producerRegistry tracks per-producer occupancy. The map is guarded by mu;
// each counter is mutated only through atomic operations.
type producerRegistry struct {
	capacity int64

	mu    sync.RWMutex
	slots map[domain.ProducerID]*slotCounter
}

func newProducerRegistry(capacity int) *producerRegistry {
	return &producerRegistry{
		capacity: int64(capacity),
		slots:    make(map[domain.ProducerID]*slotCounter),
	}
}

func (r *producerRegistry) Register() domain.ProducerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := domain.ProducerID(uuid.NewString())
		if _, exists := r.slots[id]; exists {
			continue
		}
		r.slots[id] = &slotCounter{}
		return id
	}
}

func (r *producerRegistry) counter(id domain.ProducerID) (*slotCounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("producer %s: %w", id, domain.ErrUnknownProducer)
	}
	return c, nil
}

// TryReserve takes one slot if the producer is below capacity.
func (r *producerRegistry) TryReserve(id domain.ProducerID) (bool, error) {
	c, err := r.counter(id)
	if err != nil {
		return false, err
	}

	for {
		cur := c.occupied.Load()
		if cur >= r.capacity {
			return false, nil
		}
		if c.occupied.CompareAndSwap(cur, cur+1) {
			return true, nil
		}
	}
}

func (r *producerRegistry) Release(id domain.ProducerID) error {
	c, err := r.counter(id)
	if err != nil {
		return err
	}

	for {
		cur := c.occupied.Load()
		if cur <= 0 {
			return fmt.Errorf("release slot of producer %s: %w", id, domain.ErrSlotUnderflow)
		}
		if c.occupied.CompareAndSwap(cur, cur-1) {
			return nil
		}
	}
}

// Restore gives back a slot that was released when the item left the pool.
// No capacity check: the slot was reserved by an earlier publish.
func (r *producerRegistry) Restore(id domain.ProducerID) error {
	c, err := r.counter(id)
	if err != nil {
		return err
	}
	c.occupied.Add(1)
	return nil
}

func (r *producerRegistry) Occupancy(id domain.ProducerID) (int, error) {
	c, err := r.counter(id)
	if err != nil {
		return 0, err
	}
	return int(c.occupied.Load()), nil
}

func (r *producerRegistry) snapshot() map[domain.ProducerID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.ProducerID]int, len(r.slots))
	for id, c := range r.slots {
		out[id] = int(c.occupied.Load())
	}
	return out
}
