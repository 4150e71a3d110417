package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/bookings"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// simulatedConfirmDelay mimics a real provider's acceptance latency in
// non-production environments, so realtime clients see SEARCHING before
// CONFIRMED during local development.
const simulatedConfirmDelay = 8 * time.Second

// Orchestrator is the slice of the booking service assignment drives.
type Orchestrator interface {
	GetRaw(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	Transition(ctx context.Context, bookingID uuid.UUID, to models.BookingState, mutate func(*models.Booking)) (*models.Booking, error)
	RecordAttempt(ctx context.Context, booking *models.Booking, provider *models.Provider, score *float64, success bool, meta models.AttemptMetadata) error
	AttemptedProviderIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error)
	AppendLog(ctx context.Context, bookingID uuid.UUID, event, message string, metadata map[string]string)
}

// ProviderGetter re-fetches quote-preselected providers for an eligibility
// recheck.
type ProviderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

// Scorer finds the best provider when no preselection applies.
type Scorer interface {
	FindBest(ctx context.Context, tripType models.TripType, excludeIDs []uuid.UUID) (*scoring.Candidate, error)
}

// Recoverer is invoked when assignment cannot find any provider.
type Recoverer interface {
	Recover(ctx context.Context, bookingID uuid.UUID) error
}

// Service assigns a provider to a freshly created booking: the quote fast
// path first, then scoring, then the recovery pipeline.
type Service struct {
	orchestrator Orchestrator
	providers    ProviderGetter
	scorer       Scorer
	recovery     Recoverer
	simulate     bool
}

// NewService creates a new assignment service. simulate adds an artificial
// confirmation delay for development environments.
func NewService(orchestrator Orchestrator, providers ProviderGetter, scorer Scorer, recovery Recoverer, simulate bool) *Service {
	return &Service{
		orchestrator: orchestrator,
		providers:    providers,
		scorer:       scorer,
		recovery:     recovery,
		simulate:     simulate,
	}
}

// Assign finds and binds a provider for the booking. Context cancellation
// (user cancelled, shutdown) aborts cleanly.
func (s *Service) Assign(ctx context.Context, req bookings.AssignmentRequest) error {
	booking, err := s.orchestrator.GetRaw(ctx, req.BookingID)
	if err != nil {
		return err
	}
	if booking.State != models.StateSearching {
		logger.DebugContext(ctx, "assignment skipped, booking not searching",
			zap.String("state", string(booking.State)))
		return nil
	}

	if s.simulate {
		select {
		case <-time.After(simulatedConfirmDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Fast path: the provider the user picked on the quote sheet, if it is
	// still eligible.
	if req.PreselectedProviderID != nil {
		if done, err := s.tryPreselected(ctx, booking, *req.PreselectedProviderID); done || err != nil {
			return err
		}
	}

	return s.assignByScore(ctx, booking)
}

// tryPreselected attempts the quote fast path. Returns done=false when the
// caller should fall through to scoring.
func (s *Service) tryPreselected(ctx context.Context, booking *models.Booking, providerID uuid.UUID) (bool, error) {
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		logger.WarnContext(ctx, "preselected provider lookup failed, falling back to scoring",
			zap.String("provider_id", providerID.String()), zap.Error(err))
		return false, nil
	}
	if !provider.Eligible(time.Now()) {
		logger.InfoContext(ctx, "preselected provider no longer eligible, falling back to scoring",
			zap.String("provider_id", providerID.String()))
		return false, nil
	}

	if err := s.confirm(ctx, booking, provider, nil, models.AttemptMetadata{
		Source: "quote_selection",
		Note:   "from quote selection",
	}); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			// Concurrent writer resolved the booking; nothing to do.
			return true, nil
		}
		return true, err
	}
	return true, nil
}

// assignByScore runs the scoring engine; an empty pool hands the booking to
// the recovery pipeline.
func (s *Service) assignByScore(ctx context.Context, booking *models.Booking) error {
	excludeIDs, err := s.orchestrator.AttemptedProviderIDs(ctx, booking.ID)
	if err != nil {
		return err
	}

	candidate, err := s.scorer.FindBest(ctx, booking.TripType, excludeIDs)
	if err != nil {
		if errors.Is(err, common.ErrNoProvidersAvailable) {
			logger.InfoContext(ctx, "no providers on first pass, entering recovery")
			return s.recovery.Recover(ctx, booking.ID)
		}
		return err
	}

	score := candidate.Score
	if err := s.confirm(ctx, booking, &candidate.Provider, &score, models.AttemptMetadata{
		Source: "scoring",
	}); err != nil {
		if errors.Is(err, common.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	return nil
}

// confirm binds the provider and records the successful attempt.
func (s *Service) confirm(ctx context.Context, booking *models.Booking, provider *models.Provider, score *float64, meta models.AttemptMetadata) error {
	confirmed, err := s.orchestrator.Transition(ctx, booking.ID, models.StateConfirmed, func(b *models.Booking) {
		b.ProviderID = &provider.ID
		b.CommissionRate = provider.CommissionRate
	})
	if err != nil {
		return err
	}

	if err := s.orchestrator.RecordAttempt(ctx, confirmed, provider, score, true, meta); err != nil {
		logger.WarnContext(ctx, "failed to record assignment attempt", zap.Error(err))
	}
	message := "provider " + provider.Name + " assigned"
	if meta.Note != "" {
		message += " " + meta.Note
	} else {
		message += " by " + meta.Source
	}
	s.orchestrator.AppendLog(ctx, booking.ID, models.LogEventProviderAssigned,
		message, map[string]string{"provider_id": provider.ID.String()})

	logger.InfoContext(ctx, "provider assigned",
		zap.String("provider_id", provider.ID.String()),
		zap.String("source", meta.Source),
	)
	return nil
}
