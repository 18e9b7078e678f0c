package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/orders"
)

type fakeChanger struct {
	got    orders.StatusChange
	result *orders.StatusResult
	err    error
}

func (f *fakeChanger) ChangeStatus(_ context.Context, change orders.StatusChange) (*orders.StatusResult, error) {
	f.got = change
	return f.result, f.err
}

func putStatus(t *testing.T, changer StatusChanger, path, body string) (int, map[string]any) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h := NewAdminHandler(nil, changer)
	app.Put("/orders/:id/status", h.UpdateOrderStatus)

	req := httptest.NewRequest(fiber.MethodPut, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestUpdateOrderStatusDelivered(t *testing.T) {
	order := &models.Order{OrderNumber: "ORD2026101470001", Status: models.OrderDelivered, PointsAwarded: 123}
	order.ID = 5
	customer := &models.Customer{Points: 10123, PointsDiscountPercentage: decimal.NewFromInt(3)}
	customer.ID = 7
	changer := &fakeChanger{result: &orders.StatusResult{
		Order:          order,
		PreviousStatus: models.OrderShipped,
		PointsAwarded:  123,
		Customer:       customer,
	}}

	status, body := putStatus(t, changer, "/orders/5/status", `{"status":"DELIVERED","paid_amount":"12.34"}`)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, uint(5), changer.got.OrderID)
	assert.Equal(t, models.OrderDelivered, changer.got.Status)
	require.NotNil(t, changer.got.PaidAmount)
	assert.True(t, changer.got.PaidAmount.Equal(decimal.RequireFromString("12.34")))

	data := body["data"].(map[string]any)
	assert.Equal(t, "shipped", data["previous_status"])
	assert.EqualValues(t, 123, data["points_awarded"])
	cust := data["customer"].(map[string]any)
	assert.EqualValues(t, 10123, cust["points"])
	assert.Equal(t, "silver", cust["tier"])
}

func TestUpdateOrderStatusErrors(t *testing.T) {
	status, _ := putStatus(t, &fakeChanger{}, "/orders/abc/status", `{"status":"paid"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = putStatus(t, &fakeChanger{}, "/orders/5/status", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := putStatus(t, &fakeChanger{err: apperr.NotFound("order not found")}, "/orders/5/status", `{"status":"paid"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"].(map[string]any)["code"])
}
