package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type Order struct {
	SerialModel
	CustomerID      uint            `gorm:"index;not null" json:"customer_id"`
	Customer        *Customer       `json:"customer,omitempty"`
	OrderNumber     string          `gorm:"size:40;uniqueIndex;not null" json:"order_number"`
	Status          OrderStatus     `gorm:"size:20;index;not null;default:pending" json:"status"`
	ShippingAddress string          `gorm:"size:500" json:"shipping_address"`
	BillingAddress  string          `gorm:"size:500" json:"billing_address"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"subtotal"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"paid_amount"`
	DueAmount       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"due_amount"`
	PointsAwarded   int             `gorm:"not null;default:0" json:"points_awarded"`
	PlacedAt        time.Time       `json:"placed_at"`
	Notes           string          `json:"notes"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	SerialModel
	OrderID     uint            `gorm:"index;not null" json:"order_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ProductName string          `gorm:"size:100" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"line_total"`
}
