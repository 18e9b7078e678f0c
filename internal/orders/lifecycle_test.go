package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/example/storefront/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderPending, models.OrderProcessing, true},
		{models.OrderPending, models.OrderDelivered, true},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderProcessing, models.OrderCancelled, true},
		{models.OrderDelivered, models.OrderDelivered, true},
		{models.OrderPending, models.OrderPending, true},
		{models.OrderShipped, models.OrderProcessing, false},
		{models.OrderDelivered, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderPending, false},
		{models.OrderDelivered, models.OrderShipped, false},
		{models.OrderPending, "returned", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPointsToAward(t *testing.T) {
	paid := decimal.RequireFromString("12.34")

	assert.Equal(t, 123, PointsToAward(Snapshot{Status: models.OrderShipped}, models.OrderDelivered, paid))
	assert.Zero(t, PointsToAward(Snapshot{Status: models.OrderShipped}, models.OrderProcessing, paid))
	assert.Zero(t, PointsToAward(Snapshot{Status: models.OrderDelivered}, models.OrderDelivered, paid))
	assert.Zero(t, PointsToAward(Snapshot{Status: models.OrderShipped, PointsAwarded: 50}, models.OrderDelivered, paid))
	assert.Zero(t, PointsToAward(Snapshot{Status: models.OrderShipped}, models.OrderDelivered, decimal.Zero))
}
