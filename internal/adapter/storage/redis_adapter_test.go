package storage

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/marketplace/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func newTestRedisAdapter(t *testing.T) *RedisAdapter {
	client := getRedisClient(t)
	t.Cleanup(func() { client.Close() })

	adapter := NewRedisAdapter(client, WithPrefix("test:"+t.Name()))
	require.NoError(t, adapter.Reset(context.Background()))
	t.Cleanup(func() { adapter.Reset(context.Background()) })
	return adapter
}

func TestRecord_CountsByKindAndOutcome(t *testing.T) {
	adapter := newTestRedisAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Record(ctx, domain.Event{Kind: domain.EventPublished, Producer: "p1", OK: true}))
	require.NoError(t, adapter.Record(ctx, domain.Event{Kind: domain.EventPublished, Producer: "p1", OK: true}))
	require.NoError(t, adapter.Record(ctx, domain.Event{Kind: domain.EventPublished, Producer: "p1", OK: false}))

	counters, err := adapter.Counters(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counters["published:ok"])
	assert.EqualValues(t, 1, counters["published:rejected"])

	perProducer, err := adapter.ProducerCounters(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, perProducer["published:ok"])
}

func TestRecord_OrderLinesCountedPerProducer(t *testing.T) {
	adapter := newTestRedisAdapter(t)
	ctx := context.Background()

	tea := domain.NewTea("Linden", decimal.NewFromInt(9), "Herbal")
	err := adapter.Record(ctx, domain.Event{
		Kind: domain.EventOrderPlaced,
		Cart: 17,
		OK:   true,
		Lines: []domain.Entry{
			{Item: tea, Producer: "p1"},
			{Item: tea, Producer: "p2"},
			{Item: tea, Producer: "p1"},
		},
	})
	require.NoError(t, err)

	counters, _ := adapter.Counters(ctx)
	assert.EqualValues(t, 3, counters["order_lines"])

	p1, _ := adapter.ProducerCounters(ctx, "p1")
	assert.EqualValues(t, 2, p1["sold"])
}

func TestRecord_Concurrent(t *testing.T) {
	adapter := newTestRedisAdapter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Record(ctx, domain.Event{Kind: domain.EventAddedToCart, OK: true}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	counters, err := adapter.Counters(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 50, counters["added_to_cart:ok"])
}
