package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/bookings"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	booking     *models.Booking
	attempts    []models.BookingAttempt
	logs        []string
	logMessages []string
}

func (f *fakeOrchestrator) GetRaw(_ context.Context, _ uuid.UUID) (*models.Booking, error) {
	cp := *f.booking
	return &cp, nil
}

func (f *fakeOrchestrator) Transition(_ context.Context, _ uuid.UUID, to models.BookingState, mutate func(*models.Booking)) (*models.Booking, error) {
	if f.booking.State != models.StateSearching || to != models.StateConfirmed {
		return nil, common.NewInvalidTransitionError(string(f.booking.State), string(to))
	}
	f.booking.State = to
	if mutate != nil {
		mutate(f.booking)
	}
	cp := *f.booking
	return &cp, nil
}

func (f *fakeOrchestrator) RecordAttempt(_ context.Context, booking *models.Booking, provider *models.Provider, score *float64, success bool, meta models.AttemptMetadata) error {
	f.attempts = append(f.attempts, models.BookingAttempt{
		BookingID:  booking.ID,
		ProviderID: provider.ID,
		Success:    success,
		Score:      score,
		Metadata:   meta,
	})
	return nil
}

func (f *fakeOrchestrator) AttemptedProviderIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, a := range f.attempts {
		ids = append(ids, a.ProviderID)
	}
	return ids, nil
}

func (f *fakeOrchestrator) AppendLog(_ context.Context, _ uuid.UUID, event, message string, _ map[string]string) {
	f.logs = append(f.logs, event)
	f.logMessages = append(f.logMessages, message)
}

func (f *fakeOrchestrator) lastLogMessage() string {
	if len(f.logMessages) == 0 {
		return ""
	}
	return f.logMessages[len(f.logMessages)-1]
}

type fakeProviders struct {
	providers map[uuid.UUID]*models.Provider
}

func (f *fakeProviders) Get(_ context.Context, id uuid.UUID) (*models.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, common.NewNotFoundError("provider not found")
	}
	cp := *p
	return &cp, nil
}

type fakeScorer struct {
	candidate *scoring.Candidate
	called    bool
}

func (f *fakeScorer) FindBest(_ context.Context, _ models.TripType, _ []uuid.UUID) (*scoring.Candidate, error) {
	f.called = true
	if f.candidate == nil {
		return nil, common.NewNoProvidersError("no providers available")
	}
	return f.candidate, nil
}

type fakeRecoverer struct {
	recovered []uuid.UUID
}

func (f *fakeRecoverer) Recover(_ context.Context, bookingID uuid.UUID) error {
	f.recovered = append(f.recovered, bookingID)
	return nil
}

func searchingBooking() *models.Booking {
	return &models.Booking{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		TripType: models.TripStandard,
		State:    models.StateSearching,
	}
}

func TestAssignFastPathUsesPreselectedProvider(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking()}
	provider := &models.Provider{ID: uuid.New(), Name: "Chosen", Active: true, CommissionRate: 0.11}
	providers := &fakeProviders{providers: map[uuid.UUID]*models.Provider{provider.ID: provider}}
	scorer := &fakeScorer{}

	svc := NewService(orch, providers, scorer, &fakeRecoverer{}, false)
	err := svc.Assign(context.Background(), bookings.AssignmentRequest{
		BookingID:             orch.booking.ID,
		TripType:              models.TripStandard,
		PreselectedProviderID: &provider.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateConfirmed, orch.booking.State)
	assert.Equal(t, provider.ID, *orch.booking.ProviderID)
	assert.Equal(t, 0.11, orch.booking.CommissionRate)
	assert.False(t, scorer.called, "fast path must not consult the scorer")

	require.Len(t, orch.attempts, 1)
	assert.Equal(t, "quote_selection", orch.attempts[0].Metadata.Source)
	assert.Contains(t, orch.logs, models.LogEventProviderAssigned)
	assert.Contains(t, orch.lastLogMessage(), "from quote selection")
}

func TestAssignIneligiblePreselectionFallsBackToScoring(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking()}
	paused := time.Now().Add(time.Hour)
	stale := &models.Provider{ID: uuid.New(), Name: "Paused", Active: true, PausedUntil: &paused}
	providers := &fakeProviders{providers: map[uuid.UUID]*models.Provider{stale.ID: stale}}

	fresh := models.Provider{ID: uuid.New(), Name: "Scored", Active: true, CommissionRate: 0.10}
	scorer := &fakeScorer{candidate: &scoring.Candidate{Provider: fresh, Score: 88}}

	svc := NewService(orch, providers, scorer, &fakeRecoverer{}, false)
	err := svc.Assign(context.Background(), bookings.AssignmentRequest{
		BookingID:             orch.booking.ID,
		TripType:              models.TripStandard,
		PreselectedProviderID: &stale.ID,
	})
	require.NoError(t, err)

	assert.True(t, scorer.called)
	assert.Equal(t, fresh.ID, *orch.booking.ProviderID)
	require.Len(t, orch.attempts, 1)
	assert.Equal(t, "scoring", orch.attempts[0].Metadata.Source)
	require.NotNil(t, orch.attempts[0].Score)
	assert.Equal(t, 88.0, *orch.attempts[0].Score)
}

func TestAssignEmptyPoolEntersRecovery(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking()}
	recoverer := &fakeRecoverer{}

	svc := NewService(orch, &fakeProviders{}, &fakeScorer{}, recoverer, false)
	err := svc.Assign(context.Background(), bookings.AssignmentRequest{
		BookingID: orch.booking.ID,
		TripType:  models.TripStandard,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateSearching, orch.booking.State)
	assert.Equal(t, []uuid.UUID{orch.booking.ID}, recoverer.recovered)
}

func TestAssignSkipsResolvedBooking(t *testing.T) {
	orch := &fakeOrchestrator{booking: searchingBooking()}
	orch.booking.State = models.StateCancelled
	scorer := &fakeScorer{}

	svc := NewService(orch, &fakeProviders{}, scorer, &fakeRecoverer{}, false)
	err := svc.Assign(context.Background(), bookings.AssignmentRequest{BookingID: orch.booking.ID})
	require.NoError(t, err)

	assert.False(t, scorer.called)
	assert.Equal(t, models.StateCancelled, orch.booking.State)
}

func TestPoolSingleFlight(t *testing.T) {
	// A dispatch for a booking already in flight is dropped.
	orch := &fakeOrchestrator{booking: searchingBooking()}
	svc := NewService(orch, &fakeProviders{}, &fakeScorer{}, &fakeRecoverer{}, false)

	pool := NewPool(svc, 1)
	req := bookings.AssignmentRequest{BookingID: orch.booking.ID, TripType: models.TripStandard}

	// Without started workers, the first dispatch occupies the slot.
	pool.Dispatch(req)
	pool.Dispatch(req)

	assert.Len(t, pool.tasks, 1)
}
