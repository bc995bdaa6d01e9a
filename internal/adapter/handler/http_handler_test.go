package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/marketplace/internal/adapter/handler"
	"github.com/rl1809/marketplace/internal/core/service"
)

var linden = handler.ItemDTO{
	Category:   "Tea",
	Name:       "Linden",
	Price:      "9",
	Attributes: map[string]string{"type": "Herbal"},
}

func buildTestApp(t *testing.T, capacity int) *fiber.App {
	t.Helper()
	m, err := service.NewMarketplace(capacity)
	require.NoError(t, err)

	app := fiber.New()
	handler.NewHTTPHandler(m, nil).Routes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHTTP_FullFlow(t *testing.T) {
	app := buildTestApp(t, 2)

	var producer handler.ProducerResponse
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/producers", nil, &producer))
	require.NotEmpty(t, producer.ProducerID)

	publishPath := fmt.Sprintf("/api/producers/%s/items", producer.ProducerID)
	for i, want := range []bool{true, true, false} {
		var pub handler.PublishHTTPResponse
		require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, publishPath, linden, &pub))
		assert.Equal(t, want, pub.Published, "publish %d", i)
	}

	var cart handler.CartResponse
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/carts", nil, &cart))

	itemsPath := fmt.Sprintf("/api/carts/%d/items", cart.CartID)
	var add handler.AddToCartHTTPResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, itemsPath, linden, &add))
	assert.True(t, add.Added)
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, itemsPath, linden, &add))
	assert.True(t, add.Added)

	assert.Equal(t, http.StatusNoContent, doJSON(t, app, http.MethodPost, itemsPath+"/remove", linden, nil))

	var order handler.OrderHTTPResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/carts/%d/order", cart.CartID), nil, &order))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, producer.ProducerID, order.Lines[0].ProducerID)
	assert.Equal(t, "Linden", order.Lines[0].Item.Name)

	var stats handler.StatsHTTPResponse
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/stats", nil, &stats))
	assert.Equal(t, 1, stats.Market.Available)
	assert.Equal(t, 1, stats.Market.Occupancy[producer.ProducerID])
	assert.Equal(t, 0, stats.Market.Carts)
}

func TestHTTP_UnknownHandles(t *testing.T) {
	app := buildTestApp(t, 1)

	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodPost, "/api/producers/ghost/items", linden, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodPost, "/api/carts/77/items", linden, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodPost, "/api/carts/77/order", nil, nil))
}

func TestHTTP_InvalidInput(t *testing.T) {
	app := buildTestApp(t, 1)

	bad := linden
	bad.Price = "not-a-number"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/carts/1/items", bad, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/carts/abc/items", linden, nil))

	noName := linden
	noName.Name = ""
	var cart handler.CartResponse
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/carts", nil, &cart))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/carts/%d/items", cart.CartID), noName, nil))
}

func TestHTTP_HealthCheck(t *testing.T) {
	app := buildTestApp(t, 1)

	var body map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
