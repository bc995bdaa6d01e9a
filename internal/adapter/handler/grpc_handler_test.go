package handler_test

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/marketplace/internal/adapter/handler"
	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
)

func startGRPC(t *testing.T, capacity int) *handler.GRPCClient {
	t.Helper()

	m, err := service.NewMarketplace(capacity)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	handler.RegisterMarketplaceServer(srv, handler.NewGRPCHandler(m))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return handler.NewGRPCClient(conn)
}

func TestGRPC_CapacityScenario(t *testing.T) {
	client := startGRPC(t, 2)
	ctx := context.Background()

	a := domain.NewTea("Linden", decimal.NewFromInt(9), "Herbal")
	b := domain.NewTea("Sencha", decimal.NewFromInt(12), "Green")
	c := domain.NewCoffee("Indonezia", decimal.RequireFromString("1.5"), "5.05", "MEDIUM")

	p, err := client.RegisterProducer(ctx)
	require.NoError(t, err)

	for _, tc := range []struct {
		item domain.Item
		want bool
	}{{a, true}, {b, true}, {c, false}} {
		ok, err := client.Publish(ctx, p, tc.item)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, tc.item.String())
	}

	cart, err := client.NewCart(ctx)
	require.NoError(t, err)

	added, err := client.AddToCart(ctx, cart, a)
	require.NoError(t, err)
	require.True(t, added)

	ok, err := client.Publish(ctx, p, c)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.RemoveFromCart(ctx, cart, b))

	lines, err := client.PlaceOrder(ctx, cart)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Item.Equal(a))
	assert.Equal(t, p, lines[0].Producer)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := startGRPC(t, 1)
	ctx := context.Background()
	item := domain.NewTea("Linden", decimal.NewFromInt(9), "Herbal")

	_, err := client.Publish(ctx, "ghost", item)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.PlaceOrder(ctx, 99)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.AddToCart(ctx, 1, domain.Item{Category: "Tea"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_ConcurrentConsumers(t *testing.T) {
	const stock = 10
	client := startGRPC(t, stock)
	ctx := context.Background()
	item := domain.NewTea("Linden", decimal.NewFromInt(9), "Herbal")

	p, err := client.RegisterProducer(ctx)
	require.NoError(t, err)
	for i := 0; i < stock; i++ {
		ok, err := client.Publish(ctx, p, item)
		require.NoError(t, err)
		require.True(t, ok)
	}

	var mu sync.Mutex
	won := 0
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cart, err := client.NewCart(ctx)
			if err != nil {
				t.Errorf("new cart: %v", err)
				return
			}
			added, err := client.AddToCart(ctx, cart, item)
			if err != nil {
				t.Errorf("add: %v", err)
				return
			}
			if added {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, stock, won)
}
