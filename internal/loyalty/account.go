package loyalty

import "github.com/shopspring/decimal"

// Account is the loyalty slice of a customer record.
type Account struct {
	Points             int
	MembershipID       *uint
	DiscountPercentage decimal.Decimal
}

// Add credits points and recomputes the discount. The returned level is the
// tier of the new total; the caller resolves it to a membership row.
func (a Account) Add(points int) (Account, Level) {
	next := a
	next.Points += points
	level := LevelFor(next.Points)
	next.DiscountPercentage = level.Discount
	return next, level
}

// Patch lists the loyalty fields that changed between two account states.
// Nil fields are left untouched.
type Patch struct {
	Points             *int
	MembershipID       *uint
	DiscountPercentage *decimal.Decimal
}

// Diff compares two account states. A nil membership on after means no
// membership row exists for the tier, so the current reference is kept.
func Diff(before, after Account) Patch {
	var p Patch
	if before.Points != after.Points {
		points := after.Points
		p.Points = &points
	}
	if after.MembershipID != nil && (before.MembershipID == nil || *before.MembershipID != *after.MembershipID) {
		id := *after.MembershipID
		p.MembershipID = &id
	}
	if !before.DiscountPercentage.Equal(after.DiscountPercentage) {
		discount := after.DiscountPercentage
		p.DiscountPercentage = &discount
	}
	return p
}

// Empty reports whether nothing changed.
func (p Patch) Empty() bool {
	return p.Points == nil && p.MembershipID == nil && p.DiscountPercentage == nil
}

// Columns renders the patch as a column map for a partial update.
func (p Patch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Points != nil {
		cols["points"] = *p.Points
	}
	if p.MembershipID != nil {
		cols["membership_id"] = *p.MembershipID
	}
	if p.DiscountPercentage != nil {
		cols["points_discount_percentage"] = *p.DiscountPercentage
	}
	return cols
}

// Apply writes the patch onto an account value.
func (p Patch) Apply(a Account) Account {
	if p.Points != nil {
		a.Points = *p.Points
	}
	if p.MembershipID != nil {
		id := *p.MembershipID
		a.MembershipID = &id
	}
	if p.DiscountPercentage != nil {
		a.DiscountPercentage = *p.DiscountPercentage
	}
	return a
}
