package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/marketplace/internal/core/domain"
)

// GRPCClient calls a remote marketplace.v1.Marketplace with the msgpack codec.
type GRPCClient struct {
	cc grpc.ClientConnInterface
}

func NewGRPCClient(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *GRPCClient) RegisterProducer(ctx context.Context) (domain.ProducerID, error) {
	var out RegisterProducerResponse
	if err := c.invoke(ctx, "RegisterProducer", &RegisterProducerRequest{}, &out); err != nil {
		return "", err
	}
	return domain.ProducerID(out.ProducerID), nil
}

func (c *GRPCClient) Publish(ctx context.Context, producer domain.ProducerID, item domain.Item) (bool, error) {
	var out PublishResponse
	in := &PublishRequest{ProducerID: string(producer), Item: itemToDTO(item)}
	if err := c.invoke(ctx, "Publish", in, &out); err != nil {
		return false, err
	}
	return out.Published, nil
}

func (c *GRPCClient) NewCart(ctx context.Context) (domain.CartID, error) {
	var out NewCartResponse
	if err := c.invoke(ctx, "NewCart", &NewCartRequest{}, &out); err != nil {
		return 0, err
	}
	return domain.CartID(out.CartID), nil
}

func (c *GRPCClient) AddToCart(ctx context.Context, cart domain.CartID, item domain.Item) (bool, error) {
	var out AddToCartResponse
	in := &AddToCartRequest{CartID: uint32(cart), Item: itemToDTO(item)}
	if err := c.invoke(ctx, "AddToCart", in, &out); err != nil {
		return false, err
	}
	return out.Added, nil
}

func (c *GRPCClient) RemoveFromCart(ctx context.Context, cart domain.CartID, item domain.Item) error {
	var out RemoveFromCartResponse
	in := &RemoveFromCartRequest{CartID: uint32(cart), Item: itemToDTO(item)}
	return c.invoke(ctx, "RemoveFromCart", in, &out)
}

func (c *GRPCClient) PlaceOrder(ctx context.Context, cart domain.CartID) ([]domain.Entry, error) {
	var out PlaceOrderResponse
	if err := c.invoke(ctx, "PlaceOrder", &PlaceOrderRequest{CartID: uint32(cart)}, &out); err != nil {
		return nil, err
	}
	return LinesFromDTO(out.Lines)
}
