package handler

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "marketplace.v1.Marketplace"

type RegisterProducerRequest struct{}

type RegisterProducerResponse struct {
	ProducerID string `msgpack:"producer_id"`
}

type PublishRequest struct {
	ProducerID string  `msgpack:"producer_id"`
	Item       ItemDTO `msgpack:"item"`
}

type PublishResponse struct {
	Published bool `msgpack:"published"`
}

type NewCartRequest struct{}

type NewCartResponse struct {
	CartID uint32 `msgpack:"cart_id"`
}

type AddToCartRequest struct {
	CartID uint32  `msgpack:"cart_id"`
	Item   ItemDTO `msgpack:"item"`
}

type AddToCartResponse struct {
	Added bool `msgpack:"added"`
}

type RemoveFromCartRequest struct {
	CartID uint32  `msgpack:"cart_id"`
	Item   ItemDTO `msgpack:"item"`
}

type RemoveFromCartResponse struct{}

type PlaceOrderRequest struct {
	CartID uint32 `msgpack:"cart_id"`
}

type PlaceOrderResponse struct {
	Lines []LineDTO `msgpack:"lines"`
}

// MarketplaceServer is the server side of marketplace.v1.Marketplace. The
// messages are plain structs carried by the msgpack codec.
type MarketplaceServer interface {
	RegisterProducer(context.Context, *RegisterProducerRequest) (*RegisterProducerResponse, error)
	Publish(context.Context, *PublishRequest) (*PublishResponse, error)
	NewCart(context.Context, *NewCartRequest) (*NewCartResponse, error)
	AddToCart(context.Context, *AddToCartRequest) (*AddToCartResponse, error)
	RemoveFromCart(context.Context, *RemoveFromCartRequest) (*RemoveFromCartResponse, error)
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
}

func RegisterMarketplaceServer(s grpc.ServiceRegistrar, srv MarketplaceServer) {
	s.RegisterService(&marketplaceServiceDesc, srv)
}

func unaryMethod[Req, Resp any](name string, call func(MarketplaceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MarketplaceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MarketplaceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var marketplaceServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MarketplaceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("RegisterProducer", MarketplaceServer.RegisterProducer),
		unaryMethod("Publish", MarketplaceServer.Publish),
		unaryMethod("NewCart", MarketplaceServer.NewCart),
		unaryMethod("AddToCart", MarketplaceServer.AddToCart),
		unaryMethod("RemoveFromCart", MarketplaceServer.RemoveFromCart),
		unaryMethod("PlaceOrder", MarketplaceServer.PlaceOrder),
	},
	Streams: []grpc.StreamDesc{},
}
