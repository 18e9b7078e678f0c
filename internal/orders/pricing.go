package orders

import (
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Totals holds the computed money fields of a new order.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price fills line totals and returns the order totals. The discount is a
// percentage of the subtotal rounded half-up to cents.
func Price(items []models.OrderItem, discountPercentage decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for i := range items {
		items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		subtotal = subtotal.Add(items[i].LineTotal)
	}

	discount := decimal.Zero
	if discountPercentage.IsPositive() {
		discount = subtotal.Mul(discountPercentage).Div(hundred).Round(2)
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

// Due is the outstanding balance, never below zero.
func Due(total, paid decimal.Decimal) decimal.Decimal {
	due := total.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}
