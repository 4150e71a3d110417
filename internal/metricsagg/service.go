package metricsagg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// RepositoryInterface abstracts the roll-up storage for testability.
type RepositoryInterface interface {
	UpsertDaily(ctx context.Context, providerID uuid.UUID, day time.Time, d OutcomeDelta) error
	BumpProvider(ctx context.Context, providerID uuid.UUID, successful bool, at time.Time) error
	RefreshDailyScore(ctx context.Context, providerID uuid.UUID, day time.Time) error
}

// Service folds terminal booking outcomes into provider metrics. It
// implements the booking pipeline's MetricsRecorder.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new metrics aggregation service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// RecordOutcome updates the provider's daily roll-up for a terminal booking,
// and the lifetime counters for completed and failed rides. Bookings that
// never got a provider are skipped. Failures only log: metrics must never
// break the booking pipeline.
func (s *Service) RecordOutcome(ctx context.Context, booking *models.Booking) {
	if booking.ProviderID == nil {
		return
	}
	providerID := *booking.ProviderID

	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	delta := OutcomeDelta{
		Successful: booking.State == models.StateCompleted,
		Cancelled:  booking.State == models.StateCancelled,
		Failed:     booking.State == models.StateFailed,
	}
	if delta.Successful {
		if booking.FareActual != nil {
			delta.Revenue = *booking.FareActual
		}
		if booking.CommissionAmount != nil {
			delta.Commission = *booking.CommissionAmount
		}
	}

	if err := s.repo.UpsertDaily(ctx, providerID, day, delta); err != nil {
		logger.ErrorContext(ctx, "failed to upsert daily provider metrics",
			zap.String("provider_id", providerID.String()), zap.Error(err))
		return
	}

	// A user cancellation counts against the day but not against the
	// provider's lifetime record: only completed and failed rides move
	// total_rides and reliability.
	if !delta.Cancelled {
		if err := s.repo.BumpProvider(ctx, providerID, delta.Successful, now); err != nil {
			logger.ErrorContext(ctx, "failed to bump provider counters",
				zap.String("provider_id", providerID.String()), zap.Error(err))
			return
		}
	}
	if err := s.repo.RefreshDailyScore(ctx, providerID, day); err != nil {
		logger.ErrorContext(ctx, "failed to refresh daily score",
			zap.String("provider_id", providerID.String()), zap.Error(err))
	}
}
