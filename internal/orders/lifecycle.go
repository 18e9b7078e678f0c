// Package orders assigns order numbers and drives order status changes,
// including the one-time loyalty accrual on delivery.
package orders

import (
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/loyalty"
	"github.com/example/storefront/internal/models"
)

var progression = map[models.OrderStatus]int{
	models.OrderPending:    0,
	models.OrderProcessing: 1,
	models.OrderShipped:    2,
	models.OrderDelivered:  3,
}

// Valid reports whether s is a known status.
func Valid(s models.OrderStatus) bool {
	if s == models.OrderCancelled {
		return true
	}
	_, ok := progression[s]
	return ok
}

// IsTerminal reports whether no further status change is allowed from s.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderDelivered || s == models.OrderCancelled
}

// CanTransition reports whether an order in from may be saved as to.
// Forward moves may skip steps. Cancelling works from any non-terminal
// status. Saving the current status again is always accepted.
func CanTransition(from, to models.OrderStatus) bool {
	if !Valid(from) || !Valid(to) {
		return false
	}
	if from == to {
		return true
	}
	if IsTerminal(from) {
		return false
	}
	if to == models.OrderCancelled {
		return true
	}
	return progression[to] > progression[from]
}

// Snapshot is the persisted accrual state of an order before a write.
type Snapshot struct {
	Status        models.OrderStatus
	PointsAwarded int
}

// PointsToAward returns the points a status change earns. Only the first
// move into delivered on an order that never had points recorded earns
// anything; every other write returns 0.
func PointsToAward(prev Snapshot, next models.OrderStatus, paid decimal.Decimal) int {
	if next != models.OrderDelivered {
		return 0
	}
	if prev.Status == models.OrderDelivered || prev.PointsAwarded != 0 {
		return 0
	}
	return loyalty.PointsFor(paid)
}
