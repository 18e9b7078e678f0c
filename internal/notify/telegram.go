// Package notify sends operator notifications to a Telegram admin chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/telemetry"
)

const telegramAPI = "https://api.telegram.org"

// Telegram handles sending notifications to Telegram.
type Telegram struct {
	baseURL     string
	botToken    string
	adminChatID string
	logger      zerolog.Logger
}

// NewTelegram creates a Telegram notifier. Without a token or chat id every
// send is a logged no-op.
func NewTelegram(botToken, adminChatID string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		baseURL:     telegramAPI,
		botToken:    botToken,
		adminChatID: adminChatID,
		logger:      telemetry.Component(logger, "notify"),
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin sends an HTML message to the admin chat.
func (t *Telegram) SendToAdmin(text string) error {
	if t.botToken == "" || t.adminChatID == "" {
		t.logger.Debug().Msg("telegram not configured, skipping message")
		return nil
	}

	agent := fiber.Post(fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken))
	agent.JSON(telegramMessage{ChatID: t.adminChatID, Text: text, ParseMode: "HTML"})

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("telegram send: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return fmt.Errorf("telegram returned status %d", status)
	}
	return nil
}

// FormatPrice renders an amount with thousands separators and two decimals.
func FormatPrice(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return sign + b.String() + "." + frac
}

// OrderPlaced notifies the admin chat about a new order.
func (t *Telegram) OrderPlaced(_ context.Context, order *models.Order) error {
	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1, item.ProductName, item.Quantity, FormatPrice(item.UnitPrice), FormatPrice(item.LineTotal))
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> #%d
<b>Items:</b>
%s
<b>Discount:</b> %s
<b>Total:</b> %s`,
		order.OrderNumber,
		order.CustomerID,
		items.String(),
		FormatPrice(order.DiscountAmount),
		FormatPrice(order.TotalAmount),
	)
	return t.SendToAdmin(strings.TrimSpace(message))
}

// OrderDelivered notifies the admin chat that an order was delivered.
func (t *Telegram) OrderDelivered(_ context.Context, order *models.Order, points int) error {
	message := fmt.Sprintf(`<b>✅ ORDER DELIVERED</b>
<b>Order:</b> %s
<b>Paid:</b> %s
<b>Points awarded:</b> %d`,
		order.OrderNumber,
		FormatPrice(order.PaidAmount),
		points,
	)
	return t.SendToAdmin(strings.TrimSpace(message))
}
