package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/models"
)

// BookingTimeout is how long a booking may stay SEARCHING before the timeout
// sweeper fails it.
const BookingTimeout = 5 * time.Minute

// CreateBookingRequest creates a booking. Fare resolution order: a live
// quote id wins, then a client-supplied estimate, then a computed fare.
type CreateBookingRequest struct {
	Pickup        string               `json:"pickup" binding:"required,min=3,max=200"`
	Dropoff       string               `json:"dropoff" binding:"required,min=3,max=200"`
	PickupLat     *float64             `json:"pickup_lat,omitempty" binding:"omitempty,latitude"`
	PickupLng     *float64             `json:"pickup_lng,omitempty" binding:"omitempty,longitude"`
	DropoffLat    *float64             `json:"dropoff_lat,omitempty" binding:"omitempty,latitude"`
	DropoffLng    *float64             `json:"dropoff_lng,omitempty" binding:"omitempty,longitude"`
	TripType      models.TripType      `json:"trip_type" binding:"required,oneof=HIGH_RELIABILITY STANDARD"`
	TransportMode models.TransportMode `json:"transport_mode" binding:"required,oneof=CAB BIKE AUTO METRO"`
	QuoteID       *uuid.UUID           `json:"quote_id,omitempty"`
	FareEstimate  *int64               `json:"fare_estimate,omitempty" binding:"omitempty,gt=0"`
}

// CancelBookingRequest cancels a booking with an optional reason.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=200"`
}

// ManualConfirmRequest is the admin override assigning a provider directly.
type ManualConfirmRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	Note       string    `json:"note,omitempty" binding:"omitempty,max=500"`
}

// BookingDetail is a booking with its audit trail.
type BookingDetail struct {
	Booking  *models.Booking         `json:"booking"`
	Logs     []models.BookingLog     `json:"logs"`
	Attempts []models.BookingAttempt `json:"attempts"`
}
