package bookings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/safarides/safar-backend/internal/fares"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/eventbus"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// Fare source labels recorded in booking metadata.
const (
	FareSourceQuote    = "quote"
	FareSourceClient   = "client"
	FareSourceComputed = "computed"
)

// Service orchestrates the booking lifecycle.
type Service struct {
	repo       RepositoryInterface
	store      cache.Store
	bus        *eventbus.Bus
	providers  ProviderGetter
	recorder   MetricsRecorder
	dispatcher Dispatcher
}

// NewService creates a new booking service. The dispatcher is injected later
// via SetDispatcher because the worker pool is constructed on top of this
// service.
func NewService(repo RepositoryInterface, store cache.Store, bus *eventbus.Bus, providers ProviderGetter, recorder MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		bus:       bus,
		providers: providers,
		recorder:  recorder,
	}
}

// SetDispatcher wires the assignment worker pool in after construction.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Create creates a booking in SEARCHING and hands it to the assignment
// workers. Fare resolution: quote id, then client estimate, then computed.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, userPhone string, req *CreateBookingRequest) (*models.Booking, error) {
	now := time.Now()
	booking := &models.Booking{
		ID:             uuid.New(),
		UserID:         userID,
		UserPhone:      userPhone,
		Pickup:         req.Pickup,
		Dropoff:        req.Dropoff,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		TripType:       req.TripType,
		TransportMode:  req.TransportMode,
		State:          models.StateSearching,
		CommissionRate: models.DefaultCommissionRate,
		CreatedAt:      now,
		TimeoutAt:      now.Add(BookingTimeout),
		UpdatedAt:      now,
	}

	preselected := s.resolveFare(ctx, booking, req)

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.appendLog(ctx, booking.ID, models.LogEventCreated,
		fmt.Sprintf("booking created, fare source %s", booking.Metadata.FareSource), nil)
	metrics.BookingsCreated.Inc()
	s.publishStateChange(booking)

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(AssignmentRequest{
			BookingID:             booking.ID,
			TripType:              booking.TripType,
			PreselectedProviderID: preselected,
		})
	}

	logger.InfoContext(ctx, "booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("trip_type", string(booking.TripType)),
		zap.Int64("fare_estimate", booking.FareEstimate),
	)
	return booking, nil
}

// resolveFare binds the fare estimate and, for quote bookings, the
// preselected provider. An expired quote falls through to the next source.
func (s *Service) resolveFare(ctx context.Context, booking *models.Booking, req *CreateBookingRequest) *uuid.UUID {
	if req.QuoteID != nil {
		var item models.QuoteCacheItem
		err := cache.GetJSON(ctx, s.store, cache.QuoteItemKey(req.QuoteID.String()), &item)
		if err == nil && item.TransportMode == booking.TransportMode {
			booking.FareEstimate = item.FarePaise
			booking.Metadata.QuoteID = req.QuoteID
			booking.Metadata.QuoteProviderID = item.ProviderID
			booking.Metadata.FareSource = FareSourceQuote
			return item.ProviderID
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			logger.WarnContext(ctx, "quote lookup failed", zap.Error(err))
		}
	}

	if req.FareEstimate != nil {
		booking.FareEstimate = *req.FareEstimate
		booking.Metadata.FareSource = FareSourceClient
		return nil
	}

	booking.FareEstimate = fares.CheapestFare(fares.Input{
		Mode:       booking.TransportMode,
		PickupLat:  booking.PickupLat,
		PickupLng:  booking.PickupLng,
		DropoffLat: booking.DropoffLat,
		DropoffLng: booking.DropoffLng,
	})
	booking.Metadata.FareSource = FareSourceComputed
	return nil
}

// Transition moves a booking along one lifecycle edge. The mutate callback
// applies caller-specific fields (provider binding, recovery counters) after
// the guard passes and before persistence. The optimistic repository guard
// serializes concurrent writers; the loser gets an invalid-transition error.
func (s *Service) Transition(ctx context.Context, bookingID uuid.UUID, to models.BookingState, mutate func(*models.Booking)) (*models.Booking, error) {
	booking, err := s.GetRaw(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := booking.State
	if err := GuardTransition(from, to); err != nil {
		return nil, err
	}

	now := time.Now()
	booking.PreviousState = &from
	booking.State = to
	booking.UpdatedAt = now

	switch to {
	case models.StateConfirmed:
		booking.ConfirmedAt = &now
	case models.StateInProgress:
		booking.StartedAt = &now
	case models.StateCompleted:
		booking.CompletedAt = &now
	case models.StateFailed:
		booking.FailedAt = &now
	}

	if mutate != nil {
		mutate(booking)
	}

	if to == models.StateCompleted {
		s.settleFare(booking)
	}

	if err := s.repo.UpdateState(ctx, booking, from); err != nil {
		return nil, err
	}

	s.appendLog(ctx, booking.ID, models.StateLogEvent(to),
		fmt.Sprintf("state %s -> %s", from, to), nil)
	metrics.BookingTransitions.WithLabelValues(string(to)).Inc()
	s.publishStateChange(booking)

	if to == models.StateCompleted || to == models.StateCancelled || to == models.StateFailed {
		if s.recorder != nil {
			s.recorder.RecordOutcome(ctx, booking)
		}
	}

	logger.InfoContext(ctx, "booking transitioned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return booking, nil
}

// settleFare fixes the actual fare and the provider commission at completion.
func (s *Service) settleFare(b *models.Booking) {
	if b.FareActual == nil {
		fare := b.FareEstimate
		b.FareActual = &fare
	}
	commission := int64(math.Round(float64(*b.FareActual) * b.CommissionRate))
	b.CommissionAmount = &commission
}

// Cancel cancels a booking on behalf of its owner. Only pre-trip states can
// be cancelled by the user.
func (s *Service) Cancel(ctx context.Context, bookingID, userID uuid.UUID, req *CancelBookingRequest) (*models.Booking, error) {
	booking, err := s.GetRaw(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, common.NewForbiddenError("not your booking")
	}
	if booking.State != models.StateSearching && booking.State != models.StateConfirmed {
		return nil, common.NewInvalidTransitionError(string(booking.State), string(models.StateCancelled))
	}

	if s.dispatcher != nil {
		s.dispatcher.CancelInFlight(bookingID)
	}

	updated, err := s.Transition(ctx, bookingID, models.StateCancelled, func(b *models.Booking) {
		b.Metadata.CancellationActor = "user"
	})
	if err != nil {
		return nil, err
	}

	if req != nil && req.Reason != "" {
		s.appendLog(ctx, bookingID, models.StateLogEvent(models.StateCancelled),
			"cancellation reason: "+req.Reason, nil)
	}
	return updated, nil
}

// Start marks the trip as underway.
func (s *Service) Start(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	if err := s.authorize(ctx, bookingID, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.Transition(ctx, bookingID, models.StateInProgress, nil)
}

// Complete finishes the trip, settling fare and commission.
func (s *Service) Complete(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	if err := s.authorize(ctx, bookingID, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.Transition(ctx, bookingID, models.StateCompleted, nil)
}

func (s *Service) authorize(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	booking, err := s.GetRaw(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return common.NewForbiddenError("not your booking")
	}
	return nil
}

// ManualConfirm is the operator override: assign an eligible provider to an
// escalated or failed booking directly.
func (s *Service) ManualConfirm(ctx context.Context, bookingID uuid.UUID, req *ManualConfirmRequest) (*models.Booking, error) {
	booking, err := s.GetRaw(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.State != models.StateManualEscalation && booking.State != models.StateFailed {
		return nil, common.NewInvalidTransitionError(string(booking.State), string(models.StateConfirmed))
	}

	provider, err := s.providers.Get(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if !provider.Eligible(time.Now()) {
		return nil, common.NewValidationError("provider is not eligible for assignment")
	}

	updated, err := s.Transition(ctx, bookingID, models.StateConfirmed, func(b *models.Booking) {
		b.ProviderID = &provider.ID
		b.CommissionRate = provider.CommissionRate
		b.ManualIntervention = true
	})
	if err != nil {
		return nil, err
	}

	if err := s.RecordAttempt(ctx, updated, provider, nil, true, models.AttemptMetadata{
		Source: "manual",
		Note:   req.Note,
	}); err != nil {
		logger.WarnContext(ctx, "failed to record manual attempt", zap.Error(err))
	}
	s.appendLog(ctx, bookingID, models.LogEventManualConfirmation,
		fmt.Sprintf("manually confirmed with provider %s", provider.Name),
		map[string]string{"admin_action": "true", "provider_id": provider.ID.String()})

	return updated, nil
}

// Get returns the booking with its audit trail. Non-admin callers may only
// see their own bookings.
func (s *Service) Get(ctx context.Context, bookingID, userID uuid.UUID, isAdmin bool) (*BookingDetail, error) {
	booking, err := s.GetRaw(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && booking.UserID != userID {
		return nil, common.NewForbiddenError("not your booking")
	}

	logs, err := s.repo.GetLogs(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.repo.GetAttempts(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.BookingLog{}
	}
	if attempts == nil {
		attempts = []models.BookingAttempt{}
	}

	return &BookingDetail{Booking: booking, Logs: logs, Attempts: attempts}, nil
}

// GetRaw returns a booking without authorization or trail loading. Internal
// pipelines use it.
func (s *Service) GetRaw(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("booking not found")
		}
		return nil, err
	}
	return booking, nil
}

// List returns the user's bookings, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int64, error) {
	bookings, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, total, nil
}

// RecordAttempt appends an assignment attempt with the next sequence number.
func (s *Service) RecordAttempt(ctx context.Context, booking *models.Booking, provider *models.Provider, score *float64, success bool, meta models.AttemptMetadata) error {
	number, err := s.repo.NextAttemptNumber(ctx, booking.ID)
	if err != nil {
		return err
	}

	fare := booking.FareEstimate
	attempt := &models.BookingAttempt{
		ID:            uuid.New(),
		BookingID:     booking.ID,
		ProviderID:    provider.ID,
		AttemptNumber: number,
		Success:       success,
		Score:         score,
		Reliability:   provider.Reliability,
		Fare:          &fare,
		Metadata:      meta,
		CreatedAt:     time.Now(),
	}
	return s.repo.InsertAttempt(ctx, attempt)
}

// SetRecoveryAttempts persists the recovery counter without a state change,
// so the ladder position survives a crash between attempts.
func (s *Service) SetRecoveryAttempts(ctx context.Context, bookingID uuid.UUID, attempts int) error {
	return s.repo.SetRecoveryAttempts(ctx, bookingID, attempts)
}

// AttemptedProviderIDs returns providers already tried for the booking, for
// scoring exclusion.
func (s *Service) AttemptedProviderIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	attempts, err := s.repo.GetAttempts(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ProviderID)
	}
	return ids, nil
}

// AppendLog exposes audit logging to the orchestration pipelines.
func (s *Service) AppendLog(ctx context.Context, bookingID uuid.UUID, event, message string, metadata map[string]string) {
	s.appendLog(ctx, bookingID, event, message, metadata)
}

func (s *Service) appendLog(ctx context.Context, bookingID uuid.UUID, event, message string, metadata map[string]string) {
	log := &models.BookingLog{
		ID:        uuid.New(),
		BookingID: bookingID,
		Event:     event,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertLog(ctx, log); err != nil {
		logger.WarnContext(ctx, "failed to append booking log",
			zap.String("booking_id", bookingID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// TimedOut returns SEARCHING bookings past their deadline for the sweeper.
func (s *Service) TimedOut(ctx context.Context, limit int) ([]models.Booking, error) {
	return s.repo.GetTimedOut(ctx, limit)
}

// publishStateChange fans the transition out to the owner's room and the
// admin room.
func (s *Service) publishStateChange(b *models.Booking) {
	if s.bus == nil {
		return
	}
	payload := models.StateChangedPayload{
		ID:            b.ID,
		State:         b.State,
		PreviousState: b.PreviousState,
		ProviderID:    b.ProviderID,
		UpdatedAt:     b.UpdatedAt,
	}
	s.bus.Publish(b.UserID.String(), eventbus.EventBookingStateChanged, payload)
	s.bus.Publish(eventbus.AdminRoom, eventbus.EventBookingStateChanged, payload)
}
