package recovery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/credits"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	booking          *models.Booking
	attempts         []models.BookingAttempt
	logs             []models.BookingLog
	attempted        []uuid.UUID
	persistedLadders []int
}

func (f *fakeOrchestrator) GetRaw(_ context.Context, _ uuid.UUID) (*models.Booking, error) {
	cp := *f.booking
	return &cp, nil
}

func (f *fakeOrchestrator) Transition(_ context.Context, _ uuid.UUID, to models.BookingState, mutate func(*models.Booking)) (*models.Booking, error) {
	if err := transitionGuard(f.booking.State, to); err != nil {
		return nil, err
	}
	prev := f.booking.State
	f.booking.PreviousState = &prev
	f.booking.State = to
	if mutate != nil {
		mutate(f.booking)
	}
	cp := *f.booking
	return &cp, nil
}

// Mirrors the booking state machine closely enough for pipeline tests.
func transitionGuard(from, to models.BookingState) error {
	legal := map[models.BookingState][]models.BookingState{
		models.StateSearching: {models.StateConfirmed, models.StateCancelled, models.StateFailed},
		models.StateFailed:    {models.StateSearching, models.StateConfirmed, models.StateManualEscalation},
	}
	for _, next := range legal[from] {
		if next == to {
			return nil
		}
	}
	return common.NewInvalidTransitionError(string(from), string(to))
}

func (f *fakeOrchestrator) RecordAttempt(_ context.Context, booking *models.Booking, provider *models.Provider, score *float64, success bool, meta models.AttemptMetadata) error {
	f.attempts = append(f.attempts, models.BookingAttempt{
		BookingID:  booking.ID,
		ProviderID: provider.ID,
		Success:    success,
		Score:      score,
		Metadata:   meta,
	})
	f.attempted = append(f.attempted, provider.ID)
	return nil
}

func (f *fakeOrchestrator) AttemptedProviderIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), f.attempted...), nil
}

func (f *fakeOrchestrator) SetRecoveryAttempts(_ context.Context, _ uuid.UUID, attempts int) error {
	if f.booking.State == models.StateSearching {
		f.booking.RecoveryAttempts = attempts
	}
	f.persistedLadders = append(f.persistedLadders, attempts)
	return nil
}

func (f *fakeOrchestrator) AppendLog(_ context.Context, bookingID uuid.UUID, event, message string, metadata map[string]string) {
	f.logs = append(f.logs, models.BookingLog{BookingID: bookingID, Event: event, Message: message, Metadata: metadata})
}

func (f *fakeOrchestrator) hasLog(event string) bool {
	for _, l := range f.logs {
		if l.Event == event {
			return true
		}
	}
	return false
}

// scriptedScorer returns one prepared result per call.
type scriptedScorer struct {
	results []*scoring.Candidate
	calls   []models.TripType
}

func (s *scriptedScorer) FindBest(_ context.Context, tripType models.TripType, _ []uuid.UUID) (*scoring.Candidate, error) {
	s.calls = append(s.calls, tripType)
	if len(s.results) == 0 {
		return nil, common.NewNoProvidersError("no providers available")
	}
	next := s.results[0]
	s.results = s.results[1:]
	if next == nil {
		return nil, common.NewNoProvidersError("no providers available")
	}
	return next, nil
}

type fakeCompensator struct {
	issued []uuid.UUID
	err    error
}

func (f *fakeCompensator) IssueCompensation(_ context.Context, _ uuid.UUID, _ string, bookingID uuid.UUID) (*models.UserCredit, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued = append(f.issued, bookingID)
	return &models.UserCredit{ID: uuid.New()}, nil
}

func searchingBooking(tripType models.TripType) *models.Booking {
	return &models.Booking{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		UserPhone: "+919000000001",
		TripType:  tripType,
		State:     models.StateSearching,
	}
}

func TestRecoverFirstAttemptKeepsTripType(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripHighReliability)}
	provider := models.Provider{ID: uuid.New(), Name: "Rescue", CommissionRate: 0.12, Reliability: 0.95}
	scorer := &scriptedScorer{results: []*scoring.Candidate{{Provider: provider, Score: 92}}}
	comp := &fakeCompensator{}

	svc := NewService(orch, scorer, comp, 3)
	require.NoError(t, svc.Recover(context.Background(), orch.booking.ID))

	require.Equal(t, []models.TripType{models.TripHighReliability}, scorer.calls)
	assert.Equal(t, models.StateConfirmed, orch.booking.State)
	assert.Equal(t, provider.ID, *orch.booking.ProviderID)
	assert.Equal(t, 0.12, orch.booking.CommissionRate)
	assert.Equal(t, 1, orch.booking.RecoveryAttempts)
	assert.True(t, orch.hasLog(models.LogEventRecoverySuccess))
	assert.Empty(t, comp.issued)
}

func TestRecoverWidensToStandardAfterFirstFailure(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripHighReliability)}
	provider := models.Provider{ID: uuid.New(), Name: "Fallback", CommissionRate: 0.10}
	scorer := &scriptedScorer{results: []*scoring.Candidate{nil, {Provider: provider, Score: 71}}}

	svc := NewService(orch, scorer, &fakeCompensator{}, 3)
	require.NoError(t, svc.Recover(context.Background(), orch.booking.ID))

	require.Equal(t, []models.TripType{models.TripHighReliability, models.TripStandard}, scorer.calls)
	assert.Equal(t, models.StateConfirmed, orch.booking.State)
	assert.Equal(t, 2, orch.booking.RecoveryAttempts)
	assert.True(t, orch.hasLog(models.LogEventRecoveryFailed))
	assert.True(t, orch.hasLog(models.LogEventRecoverySuccess))
}

func TestRecoverPersistsCounterPerFailedAttempt(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripStandard)}
	scorer := &scriptedScorer{} // always empty

	svc := NewService(orch, scorer, &fakeCompensator{}, 3)
	require.NoError(t, svc.Recover(context.Background(), orch.booking.ID))

	// Every failed rung writes its position, so a restart resumes from the
	// last persisted attempt instead of replaying the full ladder.
	assert.Equal(t, []int{1, 2, 3}, orch.persistedLadders)
}

func TestRecoverExhaustionEscalatesWithCompensation(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripStandard)}
	scorer := &scriptedScorer{} // always empty
	comp := &fakeCompensator{}

	svc := NewService(orch, scorer, comp, 3)
	require.NoError(t, svc.Recover(context.Background(), orch.booking.ID))

	assert.Len(t, scorer.calls, 3)
	assert.Equal(t, models.StateManualEscalation, orch.booking.State)
	assert.True(t, orch.booking.ManualIntervention)
	assert.True(t, orch.hasLog(models.LogEventEscalated))
	assert.Equal(t, []uuid.UUID{orch.booking.ID}, comp.issued)
}

func TestRecoverAbortsWhenBookingCancelled(t *testing.T) {
	booking := searchingBooking(models.TripStandard)
	booking.State = models.StateCancelled
	orch := &fakeOrchestrator{booking: booking}
	scorer := &scriptedScorer{}

	svc := NewService(orch, scorer, &fakeCompensator{}, 3)
	require.NoError(t, svc.Recover(context.Background(), booking.ID))

	assert.Empty(t, scorer.calls)
	assert.Equal(t, models.StateCancelled, booking.State)
}

func TestEscalateCompensationCapLogsLimit(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripStandard)}
	comp := &fakeCompensator{err: credits.ErrDailyCapReached}

	svc := NewService(orch, &scriptedScorer{}, comp, 3)
	require.NoError(t, svc.Escalate(context.Background(), orch.booking.ID, 3))

	assert.Equal(t, models.StateManualEscalation, orch.booking.State)
	assert.True(t, orch.hasLog(models.LogEventCompensationLimit))
}

func TestFailTimedOutLogsAndEscalates(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking(models.TripStandard)}
	comp := &fakeCompensator{}

	svc := NewService(orch, &scriptedScorer{}, comp, 3)
	require.NoError(t, svc.FailTimedOut(context.Background(), orch.booking))

	assert.True(t, orch.hasLog(models.LogEventTimeout))
	assert.Equal(t, models.StateManualEscalation, orch.booking.State)
	assert.Len(t, comp.issued, 1)
}
