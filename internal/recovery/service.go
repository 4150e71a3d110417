package recovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/bookings"
	"github.com/safarides/safar-backend/internal/credits"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// DefaultMaxTries is how many recovery assignment attempts run before
// escalation.
const DefaultMaxTries = 3

// Orchestrator is the slice of the booking service the pipeline drives.
type Orchestrator interface {
	GetRaw(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	Transition(ctx context.Context, bookingID uuid.UUID, to models.BookingState, mutate func(*models.Booking)) (*models.Booking, error)
	RecordAttempt(ctx context.Context, booking *models.Booking, provider *models.Provider, score *float64, success bool, meta models.AttemptMetadata) error
	AttemptedProviderIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error)
	SetRecoveryAttempts(ctx context.Context, bookingID uuid.UUID, attempts int) error
	AppendLog(ctx context.Context, bookingID uuid.UUID, event, message string, metadata map[string]string)
}

// Scorer finds replacement providers.
type Scorer interface {
	FindBest(ctx context.Context, tripType models.TripType, excludeIDs []uuid.UUID) (*scoring.Candidate, error)
}

// Compensator issues the failed-booking credit.
type Compensator interface {
	IssueCompensation(ctx context.Context, userID uuid.UUID, userPhone string, bookingID uuid.UUID) (*models.UserCredit, error)
}

// Service is the recovery pipeline: when assignment fails, walk the retry
// ladder, then escalate with compensation.
type Service struct {
	orchestrator Orchestrator
	scorer       Scorer
	compensator  Compensator
	maxTries     int
}

// NewService creates a new recovery service
func NewService(orchestrator Orchestrator, scorer Scorer, compensator Compensator, maxTries int) *Service {
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	return &Service{
		orchestrator: orchestrator,
		scorer:       scorer,
		compensator:  compensator,
		maxTries:     maxTries,
	}
}

// strategyForAttempt returns the trip type used for the given 1-based
// recovery attempt. The first retry honors the original reliability
// preference; later retries widen to the STANDARD pool to maximize the
// chance of any assignment.
func strategyForAttempt(original models.TripType, attempt int) models.TripType {
	if attempt == 1 {
		return original
	}
	return models.TripStandard
}

// Recover walks the retry ladder for a booking stuck in SEARCHING. It stops
// as soon as a transition lands, the booking leaves SEARCHING under its
// feet, or the ladder is exhausted (escalation).
func (s *Service) Recover(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.orchestrator.GetRaw(ctx, bookingID)
	if err != nil {
		return err
	}

	for attempt := booking.RecoveryAttempts + 1; attempt <= s.maxTries; attempt++ {
		// A user cancellation or concurrent assignment ends the pipeline.
		if booking.State != models.StateSearching {
			logger.InfoContext(ctx, "recovery aborted, booking left SEARCHING",
				zap.String("booking_id", bookingID.String()),
				zap.String("state", string(booking.State)),
			)
			return nil
		}

		metrics.RecoveryAttempts.Inc()
		tripType := strategyForAttempt(booking.TripType, attempt)

		excludeIDs, err := s.orchestrator.AttemptedProviderIDs(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("load attempted providers: %w", err)
		}

		candidate, err := s.scorer.FindBest(ctx, tripType, excludeIDs)
		if err != nil {
			if !errors.Is(err, common.ErrNoProvidersAvailable) {
				return err
			}
			s.orchestrator.AppendLog(ctx, bookingID, models.LogEventRecoveryFailed,
				fmt.Sprintf("recovery attempt %d/%d found no providers", attempt, s.maxTries),
				map[string]string{"strategy": string(tripType)})
			booking.RecoveryAttempts = attempt
			// Persist the ladder position so a restart does not replay
			// attempts already spent.
			if err := s.orchestrator.SetRecoveryAttempts(ctx, bookingID, attempt); err != nil {
				logger.WarnContext(ctx, "failed to persist recovery counter",
					zap.String("booking_id", bookingID.String()), zap.Error(err))
			}
			continue
		}

		confirmed, err := s.confirm(ctx, booking, candidate, attempt)
		if err != nil {
			if errors.Is(err, common.ErrInvalidTransition) {
				// Lost the optimistic race; re-read and re-evaluate.
				booking, err = s.orchestrator.GetRaw(ctx, bookingID)
				if err != nil {
					return err
				}
				continue
			}
			return err
		}
		return s.recordSuccess(ctx, confirmed, candidate, attempt, tripType)
	}

	return s.Escalate(ctx, bookingID, booking.RecoveryAttempts)
}

func (s *Service) confirm(ctx context.Context, booking *models.Booking, candidate *scoring.Candidate, attempt int) (*models.Booking, error) {
	provider := candidate.Provider
	return s.orchestrator.Transition(ctx, booking.ID, models.StateConfirmed, func(b *models.Booking) {
		b.ProviderID = &provider.ID
		b.CommissionRate = provider.CommissionRate
		b.RecoveryAttempts = attempt
	})
}

func (s *Service) recordSuccess(ctx context.Context, booking *models.Booking, candidate *scoring.Candidate, attempt int, tripType models.TripType) error {
	score := candidate.Score
	if err := s.orchestrator.RecordAttempt(ctx, booking, &candidate.Provider, &score, true, models.AttemptMetadata{
		Source:   "recovery",
		Strategy: string(tripType),
	}); err != nil {
		logger.WarnContext(ctx, "failed to record recovery attempt", zap.Error(err))
	}

	s.orchestrator.AppendLog(ctx, booking.ID, models.LogEventRecoverySuccess,
		fmt.Sprintf("recovered on attempt %d/%d with provider %s", attempt, s.maxTries, candidate.Provider.Name),
		map[string]string{
			"provider_id": candidate.Provider.ID.String(),
			"strategy":    string(tripType),
		})

	logger.InfoContext(ctx, "booking recovered",
		zap.String("booking_id", booking.ID.String()),
		zap.Int("attempt", attempt),
	)
	return nil
}

// Escalate moves the booking to MANUAL_ESCALATION (via FAILED when it is
// still SEARCHING), flags it for operator attention, and issues the
// compensation credit.
func (s *Service) Escalate(ctx context.Context, bookingID uuid.UUID, tries int) error {
	booking, err := s.orchestrator.GetRaw(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.State == models.StateSearching {
		booking, err = s.orchestrator.Transition(ctx, bookingID, models.StateFailed, func(b *models.Booking) {
			b.RecoveryAttempts = tries
		})
		if err != nil {
			return err
		}
	}
	if booking.State != models.StateFailed {
		// Someone else resolved the booking meanwhile.
		return nil
	}

	booking, err = s.orchestrator.Transition(ctx, bookingID, models.StateManualEscalation, func(b *models.Booking) {
		b.ManualIntervention = true
	})
	if err != nil {
		return err
	}

	metrics.Escalations.Inc()
	s.orchestrator.AppendLog(ctx, bookingID, models.LogEventEscalated,
		fmt.Sprintf("escalated after %d recovery attempts", tries), nil)

	s.compensate(ctx, booking)

	logger.WarnContext(ctx, "booking escalated to manual intervention",
		zap.String("booking_id", bookingID.String()),
		zap.Int("recovery_attempts", tries),
	)
	return nil
}

func (s *Service) compensate(ctx context.Context, booking *models.Booking) {
	_, err := s.compensator.IssueCompensation(ctx, booking.UserID, booking.UserPhone, booking.ID)
	if err == nil {
		return
	}
	if errors.Is(err, credits.ErrDailyCapReached) {
		s.orchestrator.AppendLog(ctx, booking.ID, models.LogEventCompensationLimit,
			"compensation skipped, daily cap reached", nil)
		return
	}
	logger.ErrorContext(ctx, "failed to issue compensation",
		zap.String("booking_id", booking.ID.String()), zap.Error(err))
}

// FailTimedOut escalates a booking whose SEARCHING deadline passed.
func (s *Service) FailTimedOut(ctx context.Context, booking *models.Booking) error {
	s.orchestrator.AppendLog(ctx, booking.ID, models.LogEventTimeout,
		"booking timed out while searching", nil)
	return s.Escalate(ctx, booking.ID, booking.RecoveryAttempts)
}

var _ Orchestrator = (*bookings.Service)(nil)
