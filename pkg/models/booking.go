package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BookingState is the lifecycle state of a booking.
type BookingState string

const (
	StateSearching        BookingState = "SEARCHING"
	StateConfirmed        BookingState = "CONFIRMED"
	StateInProgress       BookingState = "IN_PROGRESS"
	StateCompleted        BookingState = "COMPLETED"
	StateFailed           BookingState = "FAILED"
	StateCancelled        BookingState = "CANCELLED"
	StateManualEscalation BookingState = "MANUAL_ESCALATION"
)

// Terminal reports whether no further transitions are permitted.
func (s BookingState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// TripType is the user's reliability preference; it controls the scoring
// engine's hard-filter thresholds.
type TripType string

const (
	TripHighReliability TripType = "HIGH_RELIABILITY"
	TripStandard        TripType = "STANDARD"
)

// TransportMode is the vehicle class requested.
type TransportMode string

const (
	ModeCab   TransportMode = "CAB"
	ModeBike  TransportMode = "BIKE"
	ModeAuto  TransportMode = "AUTO"
	ModeMetro TransportMode = "METRO"
)

// ValidTransportMode reports whether m is a known mode.
func ValidTransportMode(m TransportMode) bool {
	switch m {
	case ModeCab, ModeBike, ModeAuto, ModeMetro:
		return true
	}
	return false
}

// BookingMetadata is the typed replacement for the opaque metadata blob the
// booking row used to carry.
type BookingMetadata struct {
	QuoteID           *uuid.UUID `json:"quote_id,omitempty"`
	QuoteProviderID   *uuid.UUID `json:"quote_provider_id,omitempty"`
	FareSource        string     `json:"fare_source,omitempty"` // "quote", "client", "computed"
	CancellationActor string     `json:"cancellation_actor,omitempty"`
}

// Booking is the central orchestration record. Monetary fields are minor
// units (paise).
type Booking struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	UserPhone          string          `json:"user_phone"`
	Pickup             string          `json:"pickup"`
	Dropoff            string          `json:"dropoff"`
	PickupLat          *float64        `json:"pickup_lat,omitempty"`
	PickupLng          *float64        `json:"pickup_lng,omitempty"`
	DropoffLat         *float64        `json:"dropoff_lat,omitempty"`
	DropoffLng         *float64        `json:"dropoff_lng,omitempty"`
	TripType           TripType        `json:"trip_type"`
	TransportMode      TransportMode   `json:"transport_mode"`
	ProviderID         *uuid.UUID      `json:"provider_id,omitempty"`
	State              BookingState    `json:"state"`
	PreviousState      *BookingState   `json:"previous_state,omitempty"`
	FareEstimate       int64           `json:"fare_estimate"`
	FareActual         *int64          `json:"fare_actual,omitempty"`
	CommissionRate     float64         `json:"commission_rate"`
	CommissionAmount   *int64          `json:"commission_amount,omitempty"`
	RecoveryAttempts   int             `json:"recovery_attempts"`
	ManualIntervention bool            `json:"manual_intervention"`
	Metadata           BookingMetadata `json:"metadata"`
	CreatedAt          time.Time       `json:"created_at"`
	ConfirmedAt        *time.Time      `json:"confirmed_at,omitempty"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	FailedAt           *time.Time      `json:"failed_at,omitempty"`
	TimeoutAt          time.Time       `json:"timeout_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// MarshalJSON attaches the display-currency floats next to the minor-unit
// fare fields.
func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	return json.Marshal(struct {
		alias
		FareEstimateRupees     float64  `json:"fare_estimate_rupees"`
		FareActualRupees       *float64 `json:"fare_actual_rupees,omitempty"`
		CommissionAmountRupees *float64 `json:"commission_amount_rupees,omitempty"`
	}{
		alias:                  alias(b),
		FareEstimateRupees:     Rupees(b.FareEstimate),
		FareActualRupees:       RupeesPtr(b.FareActual),
		CommissionAmountRupees: RupeesPtr(b.CommissionAmount),
	})
}

// AttemptMetadata is the typed metadata of an assignment attempt.
type AttemptMetadata struct {
	Source   string `json:"source,omitempty"` // "quote_selection", "scoring", "recovery", "manual"
	Strategy string `json:"strategy,omitempty"`
	Note     string `json:"note,omitempty"`
}

// BookingAttempt records one provider assignment attempt. AttemptNumber is
// 1-based and strictly increasing per booking.
type BookingAttempt struct {
	ID            uuid.UUID       `json:"id"`
	BookingID     uuid.UUID       `json:"booking_id"`
	ProviderID    uuid.UUID       `json:"provider_id"`
	AttemptNumber int             `json:"attempt_number"`
	Success       bool            `json:"success"`
	Score         *float64        `json:"score,omitempty"`
	Reliability   float64         `json:"reliability"`
	ETAMinutes    *int            `json:"eta_minutes,omitempty"`
	Fare          *int64          `json:"fare,omitempty"`
	Metadata      AttemptMetadata `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Booking log events. STATE_<state> events are derived from transitions; the
// rest mark orchestration milestones.
const (
	LogEventCreated            = "CREATED"
	LogEventProviderAssigned   = "PROVIDER_ASSIGNED"
	LogEventRecoverySuccess    = "RECOVERY_SUCCESS"
	LogEventRecoveryFailed     = "RECOVERY_FAILED"
	LogEventEscalated          = "ESCALATED"
	LogEventCompensationLimit  = "COMPENSATION_LIMIT"
	LogEventManualConfirmation = "MANUAL_CONFIRMATION"
	LogEventTimeout            = "TIMEOUT"
)

// StateLogEvent returns the log event name for entering a state.
func StateLogEvent(s BookingState) string {
	return "STATE_" + string(s)
}

// BookingLog is an append-only audit record for a booking.
type BookingLog struct {
	ID        uuid.UUID         `json:"id"`
	BookingID uuid.UUID         `json:"booking_id"`
	Event     string            `json:"event"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// StateChangedPayload is the realtime summary published on every transition.
type StateChangedPayload struct {
	ID            uuid.UUID     `json:"id"`
	State         BookingState  `json:"state"`
	PreviousState *BookingState `json:"previous_state,omitempty"`
	ProviderID    *uuid.UUID    `json:"provider_id,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
