package admin

import (
	"context"
	"testing"
	"time"

	"github.com/safarides/safar-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byState      map[string]int64
	today        int64
	creditCount  int64
	creditAmount int64
	providers    [3]int64 // total, active, paused
	stats        *PlatformMetrics

	statsSince  time.Time
	listedState []models.BookingState
}

func (f *fakeRepo) CountBookingsByState(_ context.Context) (map[string]int64, error) {
	return f.byState, nil
}

func (f *fakeRepo) CountBookingsSince(_ context.Context, _ time.Time) (int64, error) {
	return f.today, nil
}

func (f *fakeRepo) CreditStatsSince(_ context.Context, _ time.Time) (int64, int64, error) {
	return f.creditCount, f.creditAmount, nil
}

func (f *fakeRepo) ProviderCounts(_ context.Context) (int64, int64, int64, error) {
	return f.providers[0], f.providers[1], f.providers[2], nil
}

func (f *fakeRepo) PlatformStats(_ context.Context, since time.Time) (*PlatformMetrics, error) {
	f.statsSince = since
	cp := *f.stats
	return &cp, nil
}

func (f *fakeRepo) ListBookingsByStates(_ context.Context, states []models.BookingState, _, _ int) ([]models.Booking, int64, error) {
	f.listedState = states
	return nil, 0, nil
}

func TestDashboardAggregates(t *testing.T) {
	repo := &fakeRepo{
		byState: map[string]int64{
			"SEARCHING":         3,
			"COMPLETED":         40,
			"MANUAL_ESCALATION": 2,
		},
		today:        7,
		creditCount:  4,
		creditAmount: 40000,
		providers:    [3]int64{12, 9, 2},
	}

	dashboard, err := NewService(repo).Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), dashboard.BookingsToday)
	assert.Equal(t, int64(2), dashboard.EscalatedBookings)
	assert.Equal(t, int64(4), dashboard.CreditsIssuedToday)
	assert.Equal(t, int64(40000), dashboard.CreditsAmountToday)
	assert.Equal(t, int64(12), dashboard.TotalProviders)
	assert.Equal(t, int64(9), dashboard.ActiveProviders)
	assert.Equal(t, int64(2), dashboard.PausedProviders)
}

func TestMetricsSuccessRate(t *testing.T) {
	repo := &fakeRepo{
		stats: &PlatformMetrics{
			TotalBookings: 80,
			Completed:     62,
			Cancelled:     10,
			Failed:        5,
			TotalRevenue:  1240000,
		},
		creditCount:  6,
		creditAmount: 60000,
	}

	metrics, err := NewService(repo).Metrics(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, metrics.Days)
	assert.Equal(t, 0.775, metrics.SuccessRate)
	assert.Equal(t, int64(6), metrics.CreditsIssued)

	// The window covers 7 calendar days including today.
	wantSince := startOfDay(time.Now().AddDate(0, 0, -6))
	assert.Equal(t, wantSince, repo.statsSince)
}

func TestMetricsWindowClamped(t *testing.T) {
	repo := &fakeRepo{stats: &PlatformMetrics{}}
	svc := NewService(repo)

	metrics, err := svc.Metrics(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultMetricsDays, metrics.Days)

	metrics, err = svc.Metrics(context.Background(), 365)
	require.NoError(t, err)
	assert.Equal(t, maxMetricsDays, metrics.Days)
}

func TestMetricsZeroBookings(t *testing.T) {
	repo := &fakeRepo{stats: &PlatformMetrics{}}

	metrics, err := NewService(repo).Metrics(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, metrics.SuccessRate)
}

func TestListingsQueryExpectedStates(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	_, _, err := svc.EscalatedBookings(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.BookingState{models.StateManualEscalation}, repo.listedState)

	_, _, err = svc.ActiveBookings(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, activeStates, repo.listedState)
}
