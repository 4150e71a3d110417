package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/safarides/safar-backend/internal/fares"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/eventbus"
	"github.com/safarides/safar-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
	logs     map[uuid.UUID][]models.BookingLog
	attempts map[uuid.UUID][]models.BookingAttempt
}

func newMemRepo() *memRepo {
	return &memRepo{
		bookings: make(map[uuid.UUID]*models.Booking),
		logs:     make(map[uuid.UUID][]models.BookingLog),
		attempts: make(map[uuid.UUID][]models.BookingAttempt),
	}
}

func (m *memRepo) Create(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) UpdateState(_ context.Context, b *models.Booking, expected models.BookingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.bookings[b.ID]
	if !ok || current.State != expected {
		return common.NewInvalidTransitionError(string(expected), string(b.State))
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memRepo) SetRecoveryAttempts(_ context.Context, bookingID uuid.UUID, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[bookingID]; ok && b.State == models.StateSearching {
		b.RecoveryAttempts = attempts
	}
	return nil
}

func (m *memRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) InsertLog(_ context.Context, log *models.BookingLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[log.BookingID] = append(m.logs[log.BookingID], *log)
	return nil
}

func (m *memRepo) GetLogs(_ context.Context, bookingID uuid.UUID) ([]models.BookingLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BookingLog(nil), m.logs[bookingID]...), nil
}

func (m *memRepo) InsertAttempt(_ context.Context, a *models.BookingAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.BookingID] = append(m.attempts[a.BookingID], *a)
	return nil
}

func (m *memRepo) GetAttempts(_ context.Context, bookingID uuid.UUID) ([]models.BookingAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BookingAttempt(nil), m.attempts[bookingID]...), nil
}

func (m *memRepo) NextAttemptNumber(_ context.Context, bookingID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts[bookingID]) + 1, nil
}

func (m *memRepo) GetTimedOut(_ context.Context, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.State == models.StateSearching && b.TimeoutAt.Before(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

type stubProviders struct {
	providers map[uuid.UUID]*models.Provider
}

func (s *stubProviders) Get(_ context.Context, id uuid.UUID) (*models.Provider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, common.NewNotFoundError("provider not found")
	}
	cp := *p
	return &cp, nil
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []models.BookingState
}

func (s *stubRecorder) RecordOutcome(_ context.Context, b *models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, b.State)
}

type stubDispatcher struct {
	mu        sync.Mutex
	requests  []AssignmentRequest
	cancelled []uuid.UUID
}

func (s *stubDispatcher) Dispatch(req AssignmentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
}

func (s *stubDispatcher) CancelInFlight(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
}

type fixture struct {
	svc        *Service
	repo       *memRepo
	store      *cache.MemoryStore
	bus        *eventbus.Bus
	providers  *stubProviders
	recorder   *stubRecorder
	dispatcher *stubDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newMemRepo(),
		store:      cache.NewMemoryStore(),
		bus:        eventbus.New(),
		providers:  &stubProviders{providers: make(map[uuid.UUID]*models.Provider)},
		recorder:   &stubRecorder{},
		dispatcher: &stubDispatcher{},
	}
	t.Cleanup(f.store.Close)
	f.svc = NewService(f.repo, f.store, f.bus, f.providers, f.recorder)
	f.svc.SetDispatcher(f.dispatcher)
	return f
}

func createRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		Pickup:        "Indiranagar",
		Dropoff:       "Whitefield",
		TripType:      models.TripStandard,
		TransportMode: models.ModeCab,
	}
}

func TestCreateComputedFare(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	booking, err := f.svc.Create(context.Background(), userID, "+919000000001", createRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StateSearching, booking.State)
	assert.Equal(t, FareSourceComputed, booking.Metadata.FareSource)
	assert.Positive(t, booking.FareEstimate)
	assert.WithinDuration(t, time.Now().Add(BookingTimeout), booking.TimeoutAt, time.Minute)

	require.Len(t, f.dispatcher.requests, 1)
	assert.Equal(t, booking.ID, f.dispatcher.requests[0].BookingID)
	assert.Nil(t, f.dispatcher.requests[0].PreselectedProviderID)
}

func TestCreateClientFare(t *testing.T) {
	f := newFixture(t)

	fare := int64(18000)
	req := createRequest()
	req.FareEstimate = &fare

	booking, err := f.svc.Create(context.Background(), uuid.New(), "+919000000001", req)
	require.NoError(t, err)
	assert.Equal(t, int64(18000), booking.FareEstimate)
	assert.Equal(t, FareSourceClient, booking.Metadata.FareSource)
}

func TestCreateQuoteFareWithPreselectedProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quoteID := uuid.New()
	providerID := uuid.New()
	require.NoError(t, cache.SetJSON(ctx, f.store, cache.QuoteItemKey(quoteID.String()), models.QuoteCacheItem{
		ProviderID:    &providerID,
		FarePaise:     21500,
		TransportMode: models.ModeCab,
	}, cache.QuoteTTL))

	req := createRequest()
	req.QuoteID = &quoteID

	booking, err := f.svc.Create(ctx, uuid.New(), "+919000000001", req)
	require.NoError(t, err)

	assert.Equal(t, int64(21500), booking.FareEstimate)
	assert.Equal(t, FareSourceQuote, booking.Metadata.FareSource)
	require.Len(t, f.dispatcher.requests, 1)
	require.NotNil(t, f.dispatcher.requests[0].PreselectedProviderID)
	assert.Equal(t, providerID, *f.dispatcher.requests[0].PreselectedProviderID)
}

func TestCreateExpiredQuoteFallsBackToComputed(t *testing.T) {
	f := newFixture(t)

	quoteID := uuid.New()
	req := createRequest()
	req.QuoteID = &quoteID

	booking, err := f.svc.Create(context.Background(), uuid.New(), "+919000000001", req)
	require.NoError(t, err)
	assert.Equal(t, FareSourceComputed, booking.Metadata.FareSource)
	assert.Equal(t, fares.CheapestFare(fares.Input{Mode: models.ModeCab}), booking.FareEstimate)
}

func TestTransitionRecordsPreviousStateAndLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, uuid.New(), "+919000000001", createRequest())
	require.NoError(t, err)

	providerID := uuid.New()
	updated, err := f.svc.Transition(ctx, booking.ID, models.StateConfirmed, func(b *models.Booking) {
		b.ProviderID = &providerID
	})
	require.NoError(t, err)

	require.NotNil(t, updated.PreviousState)
	assert.Equal(t, models.StateSearching, *updated.PreviousState)
	assert.NotNil(t, updated.ConfirmedAt)
	assert.Equal(t, providerID, *updated.ProviderID)

	logs, err := f.repo.GetLogs(ctx, booking.ID)
	require.NoError(t, err)
	var events []string
	for _, l := range logs {
		events = append(events, l.Event)
	}
	assert.Contains(t, events, models.LogEventCreated)
	assert.Contains(t, events, "STATE_CONFIRMED")
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, uuid.New(), "+919000000001", createRequest())
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, booking.ID, models.StateCompleted, nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeInvalidTransition, appErr.ErrorCode)
}

func TestTransitionConcurrentWritersSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, uuid.New(), "+919000000001", createRequest())
	require.NoError(t, err)

	// Two writers race into the terminal state: exactly one may win, whether
	// the loser trips on the guard or on the optimistic update.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Transition(ctx, booking.ID, models.StateCancelled, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent transition must win")
}

func TestCompleteSettlesFareAndCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	fare := int64(20000)
	req := createRequest()
	req.FareEstimate = &fare

	booking, err := f.svc.Create(ctx, userID, "+919000000001", req)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, booking.ID, models.StateConfirmed, func(b *models.Booking) {
		b.CommissionRate = 0.12
	})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, booking.ID, userID, false)
	require.NoError(t, err)

	done, err := f.svc.Complete(ctx, booking.ID, userID, false)
	require.NoError(t, err)

	require.NotNil(t, done.FareActual)
	assert.Equal(t, int64(20000), *done.FareActual)
	require.NotNil(t, done.CommissionAmount)
	assert.Equal(t, int64(2400), *done.CommissionAmount)
	assert.NotNil(t, done.CompletedAt)

	assert.Equal(t, []models.BookingState{models.StateCompleted}, f.recorder.outcomes)
}

func TestCancelOwnershipAndStateGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()

	booking, err := f.svc.Create(ctx, owner, "+919000000001", createRequest())
	require.NoError(t, err)

	// Stranger cannot cancel.
	_, err = f.svc.Cancel(ctx, booking.ID, uuid.New(), nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeForbidden, appErr.ErrorCode)

	// Owner can; in-flight assignment is aborted.
	cancelled, err := f.svc.Cancel(ctx, booking.ID, owner, &CancelBookingRequest{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, cancelled.State)
	assert.Equal(t, "user", cancelled.Metadata.CancellationActor)
	assert.Contains(t, f.dispatcher.cancelled, booking.ID)

	// Cancelling again fails: terminal.
	_, err = f.svc.Cancel(ctx, booking.ID, owner, nil)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeInvalidTransition, appErr.ErrorCode)
}

func TestManualConfirmRequiresEligibleProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.Create(ctx, uuid.New(), "+919000000001", createRequest())
	require.NoError(t, err)

	// Walk into MANUAL_ESCALATION via FAILED.
	_, err = f.svc.Transition(ctx, booking.ID, models.StateFailed, nil)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, booking.ID, models.StateManualEscalation, nil)
	require.NoError(t, err)

	paused := time.Now().Add(2 * time.Hour)
	ineligible := &models.Provider{ID: uuid.New(), Name: "Paused", Active: true, PausedUntil: &paused, CommissionRate: 0.1}
	f.providers.providers[ineligible.ID] = ineligible

	_, err = f.svc.ManualConfirm(ctx, booking.ID, &ManualConfirmRequest{ProviderID: ineligible.ID})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeValidation, appErr.ErrorCode)

	eligible := &models.Provider{ID: uuid.New(), Name: "Ready", Active: true, CommissionRate: 0.15, Reliability: 0.9}
	f.providers.providers[eligible.ID] = eligible

	confirmed, err := f.svc.ManualConfirm(ctx, booking.ID, &ManualConfirmRequest{ProviderID: eligible.ID, Note: "operator override"})
	require.NoError(t, err)

	assert.Equal(t, models.StateConfirmed, confirmed.State)
	assert.True(t, confirmed.ManualIntervention)
	assert.Equal(t, eligible.ID, *confirmed.ProviderID)
	assert.Equal(t, 0.15, confirmed.CommissionRate)

	attempts, err := f.repo.GetAttempts(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, "manual", attempts[0].Metadata.Source)

	logs, _ := f.repo.GetLogs(ctx, booking.ID)
	var foundManual bool
	for _, l := range logs {
		if l.Event == models.LogEventManualConfirmation {
			foundManual = true
			assert.Equal(t, "true", l.Metadata["admin_action"])
		}
	}
	assert.True(t, foundManual)
}

func TestStateChangePublishedToUserAndAdminRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	userSub := f.bus.Subscribe(userID.String())
	adminSub := f.bus.Subscribe(eventbus.AdminRoom)
	defer f.bus.Unsubscribe(userSub)
	defer f.bus.Unsubscribe(adminSub)

	booking, err := f.svc.Create(ctx, userID, "+919000000001", createRequest())
	require.NoError(t, err)

	for _, sub := range []*eventbus.Subscriber{userSub, adminSub} {
		select {
		case event := <-sub.C:
			assert.Equal(t, eventbus.EventBookingStateChanged, event.Name)
			payload, ok := event.Payload.(models.StateChangedPayload)
			require.True(t, ok)
			assert.Equal(t, booking.ID, payload.ID)
			assert.Equal(t, models.StateSearching, payload.State)
		case <-time.After(time.Second):
			t.Fatal("expected state change event")
		}
	}
}
