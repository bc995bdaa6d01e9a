package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// inventoryPool holds the published, not yet carted entries, indexed by item
// key with one FIFO queue per key. Every mutation of the pool and the matching
// occupancy change happen together under mu, so for each producer occupancy
// equals its entry count whenever mu is free.
//
// Lock order: inventoryPool.mu, then producerRegistry.mu.
type inventoryPool struct {
	producers *producerRegistry

	mu    sync.Mutex
	byKey map[string][]domain.Entry
	size  int
}

func newInventoryPool(producers *producerRegistry) *inventoryPool {
	return &inventoryPool{
		producers: producers,
		byKey:     make(map[string][]domain.Entry),
	}
}

// Publish reserves a producer slot and inserts the item. It returns false
// when the producer's queue is full.
func (p *inventoryPool) Publish(item domain.Item, producer domain.ProducerID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.producers.TryReserve(producer)
	if err != nil || !ok {
		return false, err
	}

	// the pool keeps its own copy; the caller's attribute map may change later
	p.push(domain.Entry{Item: item.Clone(), Producer: producer})
	return true, nil
}

// Take removes the oldest entry equal to item and frees its producer slot.
func (p *inventoryPool) Take(item domain.Item) (domain.Entry, bool, error) {
	key := item.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.byKey[key]
	if len(queue) == 0 {
		return domain.Entry{}, false, nil
	}

	entry := queue[0]
	if err := p.producers.Release(entry.Producer); err != nil {
		return domain.Entry{}, false, fmt.Errorf("take %s: %w", item, err)
	}

	if len(queue) == 1 {
		delete(p.byKey, key)
	} else {
		queue[0] = domain.Entry{}
		p.byKey[key] = queue[1:]
	}
	p.size--
	return entry, true, nil
}

// Return puts an entry back and restores its producer slot.
func (p *inventoryPool) Return(entry domain.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.producers.Restore(entry.Producer); err != nil {
		return fmt.Errorf("return %s: %w", entry.Item, err)
	}
	p.push(entry)
	return nil
}

func (p *inventoryPool) push(entry domain.Entry) {
	key := entry.Item.Key()
	p.byKey[key] = append(p.byKey[key], entry)
	p.size++
}

func (p *inventoryPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// snapshot returns available entries grouped by key in key order, together
// with the occupancy read under the same lock.
func (p *inventoryPool) snapshot() ([]domain.Entry, map[domain.ProducerID]int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.byKey))
	for k := range p.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Entry, 0, p.size)
	for _, k := range keys {
		for _, e := range p.byKey[k] {
			out = append(out, domain.Entry{Item: e.Item.Clone(), Producer: e.Producer})
		}
	}
	return out, p.producers.snapshot()
}
