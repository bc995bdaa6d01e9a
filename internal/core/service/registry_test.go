package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// sequenceTokens replays the given tokens, then falls back to random ones.
func sequenceTokens(tokens ...uuid.UUID) func() uuid.UUID {
	i := 0
	return func() uuid.UUID {
		if i < len(tokens) {
			t := tokens[i]
			i++
			return t
		}
		return uuid.New()
	}
}

func TestCartIDFromToken_IsStableAndBounded(t *testing.T) {
	tok := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	a := cartIDFromToken(tok, 10000)
	b := cartIDFromToken(tok, 10000)

	assert.Equal(t, a, b)
	assert.Less(t, uint32(a), uint32(10000))
}

func TestCartRegistry_RerollsOnCollision(t *testing.T) {
	tok := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	other := uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

	r := newCartRegistry(10000, sequenceTokens(tok, tok, other))

	first, err := r.New()
	require.NoError(t, err)
	second, err := r.New()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, cartIDFromToken(other, 10000), second)
}

func TestCartRegistry_SpaceExhausted(t *testing.T) {
	r := newCartRegistry(4, nil)

	seen := make(map[domain.CartID]bool)
	for i := 0; i < 4; i++ {
		id, err := r.New()
		require.NoError(t, err)
		seen[id] = true
	}
	assert.Len(t, seen, 4)

	_, err := r.New()
	assert.ErrorIs(t, err, domain.ErrCartSpaceExhausted)

	for id := range seen {
		_, err := r.Drain(id)
		require.NoError(t, err)
		break
	}
	_, err = r.New()
	assert.NoError(t, err, "drained cart frees its id")
}

func TestCartRegistry_StageUnstageDrain(t *testing.T) {
	r := newCartRegistry(0, nil)
	id, err := r.New()
	require.NoError(t, err)

	require.NoError(t, r.Stage(id, domain.Entry{Item: teaA, Producer: "p1"}))
	require.NoError(t, r.Stage(id, domain.Entry{Item: teaB, Producer: "p2"}))

	e, found, err := r.Unstage(id, teaB)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.ProducerID("p2"), e.Producer)

	_, found, err = r.Unstage(id, teaB)
	require.NoError(t, err)
	assert.False(t, found)

	lines, err := r.Drain(id)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Item.Equal(teaA))

	assert.ErrorIs(t, r.Stage(id, domain.Entry{Item: teaA}), domain.ErrUnknownCart)
}

func TestProducerRegistry_ReleaseUnderflow(t *testing.T) {
	r := newProducerRegistry(2)
	id := r.Register()

	err := r.Release(id)
	assert.ErrorIs(t, err, domain.ErrSlotUnderflow)

	ok, err := r.TryReserve(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.Release(id))

	occ, err := r.Occupancy(id)
	require.NoError(t, err)
	assert.Equal(t, 0, occ)
}

func TestProducerRegistry_RestoreSkipsCapacityCheck(t *testing.T) {
	r := newProducerRegistry(1)
	id := r.Register()

	ok, _ := r.TryReserve(id)
	require.True(t, ok)
	require.NoError(t, r.Restore(id))

	occ, _ := r.Occupancy(id)
	assert.Equal(t, 2, occ)

	ok, err := r.TryReserve(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInventoryPool_TakeIsFIFOPerKey(t *testing.T) {
	r := newProducerRegistry(3)
	p1, p2 := r.Register(), r.Register()
	pool := newInventoryPool(r)

	ok, _ := pool.Publish(teaA, p1)
	require.True(t, ok)
	ok, _ = pool.Publish(teaB, p2)
	require.True(t, ok)
	ok, _ = pool.Publish(teaA, p2)
	require.True(t, ok)
	assert.Equal(t, 3, pool.Len())

	e, found, err := pool.Take(teaA)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, p1, e.Producer)

	e, found, _ = pool.Take(teaA)
	require.True(t, found)
	assert.Equal(t, p2, e.Producer)

	_, found, _ = pool.Take(teaA)
	assert.False(t, found)
	assert.Equal(t, 1, pool.Len())
}

func TestInventoryPool_ReturnUnknownProducer(t *testing.T) {
	pool := newInventoryPool(newProducerRegistry(1))

	err := pool.Return(domain.Entry{Item: teaA, Producer: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownProducer)
	assert.Equal(t, 0, pool.Len())
}
