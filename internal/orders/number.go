package orders

import (
	"fmt"
	"time"
)

const (
	numberPrefix = "ORD"
	// MaxSequence is the last sequence tried for one customer on one day.
	MaxSequence = 9999
)

// FormatNumber renders ORD + yyyymmdd + customer id + 4-digit sequence.
func FormatNumber(day time.Time, customerID uint, seq int) string {
	return fmt.Sprintf("%s%s%d%04d", numberPrefix, day.Format("20060102"), customerID, seq)
}
