package models

import "time"

// PointsReasonDelivery marks points earned when an order is delivered.
const PointsReasonDelivery = "order_delivered"

// PointsTransaction is one entry of a customer's loyalty ledger. An order
// contributes at most one entry.
type PointsTransaction struct {
	BaseModel
	CustomerID   uint      `gorm:"not null;index" json:"customer_id"`
	OrderID      *uint     `gorm:"uniqueIndex" json:"order_id"`
	OrderNumber  string    `gorm:"size:40" json:"order_number"`
	Reason       string    `gorm:"size:50;not null" json:"reason"`
	Points       int       `gorm:"not null" json:"points"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	OccurredAt   time.Time `gorm:"not null" json:"occurred_at"`
}
