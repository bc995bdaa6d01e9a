package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
)

type GRPCHandler struct {
	marketplace *service.Marketplace
}

var _ MarketplaceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(marketplace *service.Marketplace) *GRPCHandler {
	return &GRPCHandler{marketplace: marketplace}
}

func (h *GRPCHandler) RegisterProducer(ctx context.Context, _ *RegisterProducerRequest) (*RegisterProducerResponse, error) {
	id := h.marketplace.RegisterProducer()
	return &RegisterProducerResponse{ProducerID: string(id)}, nil
}

func (h *GRPCHandler) Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error) {
	item, err := req.Item.toDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ok, err := h.marketplace.Publish(domain.ProducerID(req.ProducerID), item)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PublishResponse{Published: ok}, nil
}

func (h *GRPCHandler) NewCart(ctx context.Context, _ *NewCartRequest) (*NewCartResponse, error) {
	id, err := h.marketplace.NewCart()
	if err != nil {
		return nil, toStatus(err)
	}
	return &NewCartResponse{CartID: uint32(id)}, nil
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *AddToCartRequest) (*AddToCartResponse, error) {
	item, err := req.Item.toDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	added, err := h.marketplace.AddToCart(domain.CartID(req.CartID), item)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AddToCartResponse{Added: added}, nil
}

func (h *GRPCHandler) RemoveFromCart(ctx context.Context, req *RemoveFromCartRequest) (*RemoveFromCartResponse, error) {
	item, err := req.Item.toDomain()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := h.marketplace.RemoveFromCart(domain.CartID(req.CartID), item); err != nil {
		return nil, toStatus(err)
	}
	return &RemoveFromCartResponse{}, nil
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	lines, err := h.marketplace.PlaceOrder(domain.CartID(req.CartID))
	if err != nil {
		return nil, toStatus(err)
	}
	return &PlaceOrderResponse{Lines: linesToDTO(lines)}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownProducer), errors.Is(err, domain.ErrUnknownCart):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrCartSpaceExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
