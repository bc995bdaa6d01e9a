package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/marketplace/internal/core/domain"
)

const defaultCartIDSpace = 10000

type cart struct {
	mu      sync.Mutex
	entries []domain.Entry
	retired bool
}

// cartRegistry owns the staged sequences. The map is guarded by mu and each
// cart by its own mutex; no operation needs two carts at once.
type cartRegistry struct {
	space    uint32
	newToken func() uuid.UUID

	mu    sync.RWMutex
	carts map[domain.CartID]*cart
}

func newCartRegistry(space uint32, newToken func() uuid.UUID) *cartRegistry {
	if space == 0 {
		space = defaultCartIDSpace
	}
	if newToken == nil {
		newToken = uuid.New
	}
	return &cartRegistry{
		space:    space,
		newToken: newToken,
		carts:    make(map[domain.CartID]*cart),
	}
}

// cartIDFromToken hashes the token and folds the first four bytes of the
// digest into the id space.
func cartIDFromToken(token uuid.UUID, space uint32) domain.CartID {
	sum := sha256.Sum256([]byte(token.String()))
	return domain.CartID(binary.BigEndian.Uint32(sum[:4]) % space)
}

func (r *cartRegistry) New() (domain.CartID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if uint64(len(r.carts)) >= uint64(r.space) {
		return 0, domain.ErrCartSpaceExhausted
	}

	for {
		id := cartIDFromToken(r.newToken(), r.space)
		if _, taken := r.carts[id]; taken {
			continue
		}
		r.carts[id] = &cart{}
		return id, nil
	}
}

func (r *cartRegistry) get(id domain.CartID) (*cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, fmt.Errorf("cart %d: %w", id, domain.ErrUnknownCart)
	}
	return c, nil
}

// stage appends to c. It fails only if c was retired after it was looked up.
func (c *cart) stage(id domain.CartID, entry domain.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return fmt.Errorf("cart %d: %w", id, domain.ErrUnknownCart)
	}
	c.entries = append(c.entries, entry)
	return nil
}

func (r *cartRegistry) Stage(id domain.CartID, entry domain.Entry) error {
	c, err := r.get(id)
	if err != nil {
		return err
	}
	return c.stage(id, entry)
}

// Unstage removes the first staged entry equal to item.
func (r *cartRegistry) Unstage(id domain.CartID, item domain.Item) (domain.Entry, bool, error) {
	c, err := r.get(id)
	if err != nil {
		return domain.Entry{}, false, err
	}

	key := item.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return domain.Entry{}, false, fmt.Errorf("cart %d: %w", id, domain.ErrUnknownCart)
	}
	for i, e := range c.entries {
		if e.Item.Key() != key {
			continue
		}
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
		return e, true, nil
	}
	return domain.Entry{}, false, nil
}

// Drain returns the staged sequence and retires the cart. The id may be
// issued again by a later New.
func (r *cartRegistry) Drain(id domain.CartID) ([]domain.Entry, error) {
	r.mu.Lock()
	c, ok := r.carts[id]
	if ok {
		delete(r.carts, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("cart %d: %w", id, domain.ErrUnknownCart)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.retired = true
	entries := c.entries
	c.entries = nil
	return entries, nil
}

func (r *cartRegistry) snapshot() map[domain.CartID][]domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.CartID][]domain.Entry, len(r.carts))
	for id, c := range r.carts {
		c.mu.Lock()
		out[id] = append([]domain.Entry(nil), c.entries...)
		c.mu.Unlock()
	}
	return out
}
