package admin

// Dashboard is the operator landing-page payload: live state of the booking
// pipeline and the provider pool.
type Dashboard struct {
	BookingsByState    map[string]int64 `json:"bookings_by_state"`
	BookingsToday      int64            `json:"bookings_today"`
	EscalatedBookings  int64            `json:"escalated_bookings"`
	CreditsIssuedToday int64            `json:"credits_issued_today"`
	CreditsAmountToday int64            `json:"credits_amount_today"`
	TotalProviders     int64            `json:"total_providers"`
	ActiveProviders    int64            `json:"active_providers"`
	PausedProviders    int64            `json:"paused_providers"`
}

// PlatformMetrics aggregates booking outcomes over a trailing window.
// Monetary fields are minor units.
type PlatformMetrics struct {
	Days            int     `json:"days"`
	TotalBookings   int64   `json:"total_bookings"`
	Completed       int64   `json:"completed"`
	Cancelled       int64   `json:"cancelled"`
	Failed          int64   `json:"failed"`
	Escalated       int64   `json:"escalated"`
	SuccessRate     float64 `json:"success_rate"`
	Recovered       int64   `json:"recovered"`
	TotalRevenue    int64   `json:"total_revenue"`
	TotalCommission int64   `json:"total_commission"`
	CreditsIssued   int64   `json:"credits_issued"`
	CreditsAmount   int64   `json:"credits_amount"`
}
