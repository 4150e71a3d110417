package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Compensation policy constants.
const (
	// CompensationAmountMinorUnits is the wallet credit for a failed
	// reliability promise (100.00 in display currency).
	CompensationAmountMinorUnits int64 = 10000

	// CompensationValidityDays is how long a compensation credit stays
	// redeemable.
	CompensationValidityDays = 30

	// CompensationDailyCap is the maximum credits issued per user per day.
	CompensationDailyCap = 3
)

// UserCredit is a wallet credit in minor units. UsedInBookingID doubles as
// the booking the credit was issued for (with used=false) until it is spent.
type UserCredit struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	UserPhone       string     `json:"user_phone"`
	Amount          int64      `json:"amount"`
	Reason          string     `json:"reason"`
	Used            bool       `json:"used"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	UsedInBookingID *uuid.UUID `json:"used_in_booking_id,omitempty"`
	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// MarshalJSON attaches the display-currency float next to the minor-unit
// amount.
func (c UserCredit) MarshalJSON() ([]byte, error) {
	type alias UserCredit
	return json.Marshal(struct {
		alias
		AmountRupees float64 `json:"amount_rupees"`
	}{
		alias:        alias(c),
		AmountRupees: Rupees(c.Amount),
	})
}

// Available reports whether the credit can still be redeemed.
func (c *UserCredit) Available(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}
