// Package loyalty maps accumulated points to membership tiers and computes
// the customer-side changes of a points accrual.
package loyalty

import "github.com/shopspring/decimal"

// Tier is a named loyalty level.
type Tier string

const (
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
	Diamond  Tier = "diamond"
)

// Level is a tier with its inclusive lower points bound and discount.
type Level struct {
	Tier      Tier
	MinPoints int
	Discount  decimal.Decimal
}

// levels is ordered from the highest threshold down; the first match wins.
var levels = []Level{
	{Tier: Diamond, MinPoints: 40000, Discount: decimal.RequireFromString("15.00")},
	{Tier: Platinum, MinPoints: 30000, Discount: decimal.RequireFromString("11.00")},
	{Tier: Gold, MinPoints: 20000, Discount: decimal.RequireFromString("7.00")},
	{Tier: Silver, MinPoints: 10000, Discount: decimal.RequireFromString("3.00")},
	{Tier: Bronze, MinPoints: 0, Discount: decimal.RequireFromString("0.00")},
}

// LevelFor returns the level matching the given points total. Negative
// totals fall into the lowest tier.
func LevelFor(points int) Level {
	for _, l := range levels {
		if points >= l.MinPoints {
			return l
		}
	}
	return levels[len(levels)-1]
}

// Levels returns all levels ordered from bronze to diamond.
func Levels() []Level {
	out := make([]Level, len(levels))
	for i, l := range levels {
		out[len(levels)-1-i] = l
	}
	return out
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, bool) {
	for _, l := range levels {
		if string(l.Tier) == s {
			return l.Tier, true
		}
	}
	return "", false
}
