package quotes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/models"
)

// maxQuoteProviders caps how many scored providers back a quote sheet.
const maxQuoteProviders = 5

// QuoteRequest asks for a priced quote sheet. Coordinates are optional; a
// client-routed distance wins over coordinate-derived distance.
type QuoteRequest struct {
	Pickup        string               `json:"pickup" binding:"required,min=3,max=200"`
	Dropoff       string               `json:"dropoff" binding:"required,min=3,max=200"`
	PickupLat     *float64             `json:"pickup_lat,omitempty" binding:"omitempty,latitude"`
	PickupLng     *float64             `json:"pickup_lng,omitempty" binding:"omitempty,longitude"`
	DropoffLat    *float64             `json:"dropoff_lat,omitempty" binding:"omitempty,latitude"`
	DropoffLng    *float64             `json:"dropoff_lng,omitempty" binding:"omitempty,longitude"`
	DistanceKm    *float64             `json:"distance_km,omitempty" binding:"omitempty,gt=0"`
	TransportMode models.TransportMode `json:"transport_mode" binding:"required,oneof=CAB BIKE AUTO METRO"`
}

// Quote is one bookable option on the sheet. Metro quotes carry a line name
// in Tier and no provider.
type Quote struct {
	ID            uuid.UUID            `json:"id"`
	Tier          string               `json:"tier"`
	TransportMode models.TransportMode `json:"transport_mode"`
	ProviderID    *uuid.UUID           `json:"provider_id,omitempty"`
	ProviderName  string               `json:"provider_name,omitempty"`
	ProviderScore *float64             `json:"provider_score,omitempty"`
	FarePaise     int64                `json:"fare_paise"`
	DistanceKm    float64              `json:"distance_km"`
	DurationMin   int                  `json:"duration_min"`
	Tags          []models.QuoteTag    `json:"tags,omitempty"`
}

// MarshalJSON attaches the display-currency float next to the minor-unit
// fare.
func (q Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return json.Marshal(struct {
		alias
		FareRupees float64 `json:"fare_rupees"`
	}{
		alias:      alias(q),
		FareRupees: models.Rupees(q.FarePaise),
	})
}

// QuoteSheet is the full response cached under the session id.
type QuoteSheet struct {
	SessionID uuid.UUID `json:"session_id"`
	Quotes    []Quote   `json:"quotes"`
	ExpiresAt time.Time `json:"expires_at"`
}
