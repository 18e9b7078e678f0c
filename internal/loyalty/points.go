package loyalty

import "github.com/shopspring/decimal"

var pointsPerCurrencyUnit = decimal.NewFromInt(10)

// PointsFor converts a paid amount into loyalty points: amount*10 truncated
// toward zero. Zero or negative amounts earn nothing.
func PointsFor(paid decimal.Decimal) int {
	if !paid.IsPositive() {
		return 0
	}
	return int(paid.Mul(pointsPerCurrencyUnit).Truncate(0).IntPart())
}
