package admin

import (
	"context"
	"math"
	"time"

	"github.com/safarides/safar-backend/pkg/models"
)

// RepositoryInterface defines the admin read-side queries.
type RepositoryInterface interface {
	CountBookingsByState(ctx context.Context) (map[string]int64, error)
	CountBookingsSince(ctx context.Context, since time.Time) (int64, error)
	CreditStatsSince(ctx context.Context, since time.Time) (count, amount int64, err error)
	ProviderCounts(ctx context.Context) (total, active, paused int64, err error)
	PlatformStats(ctx context.Context, since time.Time) (*PlatformMetrics, error)
	ListBookingsByStates(ctx context.Context, states []models.BookingState, limit, offset int) ([]models.Booking, int64, error)
}

const (
	defaultMetricsDays = 7
	maxMetricsDays     = 90
)

// activeStates are the non-terminal states an operator watches.
var activeStates = []models.BookingState{
	models.StateSearching,
	models.StateConfirmed,
	models.StateInProgress,
}

// Service serves the operator dashboard and listings.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new admin service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// Dashboard builds the landing-page aggregates.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	byState, err := s.repo.CountBookingsByState(ctx)
	if err != nil {
		return nil, err
	}

	dayStart := startOfDay(time.Now())
	today, err := s.repo.CountBookingsSince(ctx, dayStart)
	if err != nil {
		return nil, err
	}
	creditCount, creditAmount, err := s.repo.CreditStatsSince(ctx, dayStart)
	if err != nil {
		return nil, err
	}
	total, active, paused, err := s.repo.ProviderCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		BookingsByState:    byState,
		BookingsToday:      today,
		EscalatedBookings:  byState[string(models.StateManualEscalation)],
		CreditsIssuedToday: creditCount,
		CreditsAmountToday: creditAmount,
		TotalProviders:     total,
		ActiveProviders:    active,
		PausedProviders:    paused,
	}, nil
}

// Metrics aggregates outcomes over a trailing window of days.
func (s *Service) Metrics(ctx context.Context, days int) (*PlatformMetrics, error) {
	if days <= 0 {
		days = defaultMetricsDays
	}
	if days > maxMetricsDays {
		days = maxMetricsDays
	}
	since := startOfDay(time.Now().AddDate(0, 0, -(days - 1)))

	metrics, err := s.repo.PlatformStats(ctx, since)
	if err != nil {
		return nil, err
	}
	metrics.Days = days

	if metrics.TotalBookings > 0 {
		rate := float64(metrics.Completed) / float64(metrics.TotalBookings)
		metrics.SuccessRate = math.Round(rate*10000) / 10000
	}

	creditCount, creditAmount, err := s.repo.CreditStatsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	metrics.CreditsIssued = creditCount
	metrics.CreditsAmount = creditAmount

	return metrics, nil
}

// EscalatedBookings lists the manual-intervention queue, oldest first.
func (s *Service) EscalatedBookings(ctx context.Context, limit, offset int) ([]models.Booking, int64, error) {
	return s.repo.ListBookingsByStates(ctx, []models.BookingState{models.StateManualEscalation}, limit, offset)
}

// ActiveBookings lists bookings still moving through the pipeline.
func (s *Service) ActiveBookings(ctx context.Context, limit, offset int) ([]models.Booking, int64, error) {
	return s.repo.ListBookingsByStates(ctx, activeStates, limit, offset)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
