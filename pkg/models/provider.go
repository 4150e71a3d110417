package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType distinguishes single drivers from fleet operators.
type ProviderType string

const (
	ProviderTypeIndividual ProviderType = "INDIVIDUAL"
	ProviderTypeFleet      ProviderType = "FLEET"
)

// Default ratios applied to newly created providers.
const (
	DefaultCommissionRate = 0.10
	DefaultReliability    = 0.85
	DefaultRating         = 4.5
)

// Provider is a service provider able to fulfil bookings.
type Provider struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	Type            ProviderType `json:"type"`
	VehicleModel    *string      `json:"vehicle_model,omitempty"`
	VehiclePlate    *string      `json:"vehicle_plate,omitempty"`
	CommissionRate  float64      `json:"commission_rate"`
	Active          bool         `json:"active"`
	PausedUntil     *time.Time   `json:"paused_until,omitempty"`
	PauseReason     *string      `json:"pause_reason,omitempty"`
	Reliability     float64      `json:"reliability"`
	Rating          float64      `json:"rating"`
	TotalRides      int          `json:"total_rides"`
	SuccessfulRides int          `json:"successful_rides"`
	LastActiveAt    *time.Time   `json:"last_active_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Eligible reports whether the provider can currently take assignments:
// active and not under a live pause.
func (p *Provider) Eligible(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.PausedUntil == nil || p.PausedUntil.Before(now)
}

// ProviderMetric is the per-provider, per-day counter roll-up. The
// (provider_id, date) pair is unique.
type ProviderMetric struct {
	ID               uuid.UUID `json:"id"`
	ProviderID       uuid.UUID `json:"provider_id"`
	Date             time.Time `json:"date"`
	TotalBookings    int       `json:"total_bookings"`
	Successful       int       `json:"successful"`
	Cancelled        int       `json:"cancelled"`
	Rejected         int       `json:"rejected"`
	Failed           int       `json:"failed"`
	OnTime           int       `json:"on_time"`
	Late             int       `json:"late"`
	ReliabilityScore float64   `json:"reliability_score"`
	OnTimeRate       float64   `json:"on_time_rate"`
	TotalRevenue     int64     `json:"total_revenue"`
	TotalCommission  int64     `json:"total_commission"`
}
