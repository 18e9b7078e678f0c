package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/models"
)

func TestFormatPrice(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"12.3":       "12.30",
		"1234.5":     "1,234.50",
		"1234567.89": "1,234,567.89",
		"-1000":      "-1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPrice(decimal.RequireFromString(in)), in)
	}
}

func TestSendToAdminUnconfiguredIsNoop(t *testing.T) {
	tg := NewTelegram("", "", zerolog.Nop())
	assert.NoError(t, tg.SendToAdmin("hello"))
}

func TestOrderDeliveredPostsMessage(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "42", zerolog.Nop())
	tg.baseURL = srv.URL

	order := &models.Order{OrderNumber: "ORD20261014070001", PaidAmount: decimal.RequireFromString("12.34")}
	require.NoError(t, tg.OrderDelivered(context.Background(), order, 123))

	assert.Contains(t, body, "ORD20261014070001")
	assert.Contains(t, body, `"chat_id":"42"`)
	assert.Contains(t, body, "123")
}

func TestSendToAdminReportsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tg := NewTelegram("token", "42", zerolog.Nop())
	tg.baseURL = srv.URL

	assert.Error(t, tg.SendToAdmin("hi"))
}
