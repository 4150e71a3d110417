package bookings

import (
	"context"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/models"
)

// AssignmentRequest asks the assignment workers to find a provider for a
// booking. PreselectedProviderID is set when the booking redeemed a quote.
type AssignmentRequest struct {
	BookingID             uuid.UUID
	TripType              models.TripType
	PreselectedProviderID *uuid.UUID
}

// Dispatcher hands bookings to the assignment worker pool. Defined here so
// the assignment package can depend on bookings without a cycle.
type Dispatcher interface {
	Dispatch(req AssignmentRequest)
	// CancelInFlight aborts any running assignment for the booking.
	CancelInFlight(bookingID uuid.UUID)
}

// MetricsRecorder receives terminal booking outcomes for the provider
// metrics roll-up.
type MetricsRecorder interface {
	RecordOutcome(ctx context.Context, booking *models.Booking)
}

// ProviderGetter fetches providers for manual confirmation eligibility and
// commission binding.
type ProviderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

// RepositoryInterface abstracts booking storage for testability.
type RepositoryInterface interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	UpdateState(ctx context.Context, b *models.Booking, expected models.BookingState) error
	SetRecoveryAttempts(ctx context.Context, bookingID uuid.UUID, attempts int) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int64, error)
	InsertLog(ctx context.Context, log *models.BookingLog) error
	GetLogs(ctx context.Context, bookingID uuid.UUID) ([]models.BookingLog, error)
	InsertAttempt(ctx context.Context, attempt *models.BookingAttempt) error
	GetAttempts(ctx context.Context, bookingID uuid.UUID) ([]models.BookingAttempt, error)
	NextAttemptNumber(ctx context.Context, bookingID uuid.UUID) (int, error)
	GetTimedOut(ctx context.Context, limit int) ([]models.Booking, error)
}
