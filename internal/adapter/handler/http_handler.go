package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rl1809/marketplace/internal/core/domain"
	"github.com/rl1809/marketplace/internal/core/service"
	"github.com/rl1809/marketplace/internal/port"
)

const defaultStatsTimeout = 2 * time.Second

type HTTPHandler struct {
	marketplace  *service.Marketplace
	events       port.EventStore
	statsTimeout time.Duration
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ProducerResponse struct {
	ProducerID string `json:"producer_id"`
}

type PublishHTTPResponse struct {
	Published bool `json:"published"`
}

type CartResponse struct {
	CartID uint32 `json:"cart_id"`
}

type AddToCartHTTPResponse struct {
	Added bool `json:"added"`
}

type OrderHTTPResponse struct {
	CartID uint32    `json:"cart_id"`
	Lines  []LineDTO `json:"lines"`
}

type StatsHTTPResponse struct {
	Market StatsDTO         `json:"market"`
	Events map[string]int64 `json:"events,omitempty"`
}

// NewHTTPHandler builds the handler; events may be nil when Redis is off.
func NewHTTPHandler(marketplace *service.Marketplace, events port.EventStore) *HTTPHandler {
	return &HTTPHandler{marketplace: marketplace, events: events, statsTimeout: defaultStatsTimeout}
}

// Routes registers the marketplace API on app.
func (h *HTTPHandler) Routes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	api := app.Group("/api")
	api.Get("/stats", h.Stats)

	producers := api.Group("/producers")
	producers.Post("/", h.RegisterProducer)
	producers.Post("/:id/items", h.Publish)

	carts := api.Group("/carts")
	carts.Post("/", h.NewCart)
	carts.Post("/:id/items", h.AddToCart)
	carts.Post("/:id/items/remove", h.RemoveFromCart)
	carts.Post("/:id/order", h.PlaceOrder)
}

func (h *HTTPHandler) RegisterProducer(c *fiber.Ctx) error {
	id := h.marketplace.RegisterProducer()
	return c.Status(fiber.StatusCreated).JSON(ProducerResponse{ProducerID: string(id)})
}

func (h *HTTPHandler) Publish(c *fiber.Ctx) error {
	item, err := parseItem(c)
	if err != nil {
		return badRequest(c, err)
	}

	ok, err := h.marketplace.Publish(domain.ProducerID(c.Params("id")), item)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(PublishHTTPResponse{Published: ok})
}

func (h *HTTPHandler) NewCart(c *fiber.Ctx) error {
	id, err := h.marketplace.NewCart()
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CartResponse{CartID: uint32(id)})
}

func (h *HTTPHandler) AddToCart(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return badRequest(c, err)
	}
	item, err := parseItem(c)
	if err != nil {
		return badRequest(c, err)
	}

	added, err := h.marketplace.AddToCart(cartID, item)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(AddToCartHTTPResponse{Added: added})
}

func (h *HTTPHandler) RemoveFromCart(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return badRequest(c, err)
	}
	item, err := parseItem(c)
	if err != nil {
		return badRequest(c, err)
	}

	if err := h.marketplace.RemoveFromCart(cartID, item); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandler) PlaceOrder(c *fiber.Ctx) error {
	cartID, err := parseCartID(c)
	if err != nil {
		return badRequest(c, err)
	}

	lines, err := h.marketplace.PlaceOrder(cartID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(OrderHTTPResponse{CartID: uint32(cartID), Lines: linesToDTO(lines)})
}

func (h *HTTPHandler) Stats(c *fiber.Ctx) error {
	resp := StatsHTTPResponse{Market: statsToDTO(h.marketplace.Snapshot())}
	if h.events != nil {
		// counters are best effort; the market view is still useful without them
		ctx, cancel := context.WithTimeout(c.Context(), h.statsTimeout)
		if counters, err := h.events.Counters(ctx); err == nil {
			resp.Events = counters
		}
		cancel()
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func parseItem(c *fiber.Ctx) (domain.Item, error) {
	var in ItemDTO
	if err := c.BodyParser(&in); err != nil {
		return domain.Item{}, errors.New("invalid request body")
	}
	return in.toDomain()
}

func parseCartID(c *fiber.Ctx) (domain.CartID, error) {
	n, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid cart id")
	}
	return domain.CartID(n), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_REQUEST", Message: err.Error()})
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownProducer):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "UNKNOWN_PRODUCER", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownCart):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "UNKNOWN_CART", Message: err.Error()})
	case errors.Is(err, domain.ErrCartSpaceExhausted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Code: "CART_SPACE_EXHAUSTED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: "internal error"})
	}
}
