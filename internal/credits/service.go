package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// ReasonCompensation marks credits issued for a failed reliability promise.
const ReasonCompensation = "BOOKING_FAILURE_COMPENSATION"

// ErrDailyCapReached means the user already received the maximum compensation
// credits today. Not a failure: the caller logs it and moves on.
var ErrDailyCapReached = errors.New("credits: daily compensation cap reached")

// RepositoryInterface abstracts credit storage for testability.
type RepositoryInterface interface {
	Insert(ctx context.Context, c *models.UserCredit) error
	GetByUserAndBooking(ctx context.Context, userID, bookingID uuid.UUID) (*models.UserCredit, error)
	CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCredit, error)
}

// Service issues and lists compensation credits.
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new credits service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// IssueCompensation grants the standard compensation credit for a failed
// booking. Idempotent per (user, booking); capped per user per calendar day.
func (s *Service) IssueCompensation(ctx context.Context, userID uuid.UUID, userPhone string, bookingID uuid.UUID) (*models.UserCredit, error) {
	existing, err := s.repo.GetByUserAndBooking(ctx, userID, bookingID)
	if err == nil {
		logger.DebugContext(ctx, "compensation already issued for booking",
			zap.String("booking_id", bookingID.String()))
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing credit: %w", err)
	}

	// The cap window is the UTC calendar day, matching the stored timestamps.
	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	issuedToday, err := s.repo.CountIssuedSince(ctx, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("count credits issued today: %w", err)
	}
	if issuedToday >= models.CompensationDailyCap {
		return nil, ErrDailyCapReached
	}

	bid := bookingID
	credit := &models.UserCredit{
		ID:              uuid.New(),
		UserID:          userID,
		UserPhone:       userPhone,
		Amount:          models.CompensationAmountMinorUnits,
		Reason:          ReasonCompensation,
		UsedInBookingID: &bid,
		IssuedAt:        now,
		ExpiresAt:       now.AddDate(0, 0, models.CompensationValidityDays),
	}
	if err := s.repo.Insert(ctx, credit); err != nil {
		return nil, fmt.Errorf("insert credit: %w", err)
	}

	metrics.CreditsIssued.Inc()
	logger.InfoContext(ctx, "compensation credit issued",
		zap.String("user_id", userID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Int64("amount", credit.Amount),
	)
	return credit, nil
}

// CreditSummary is a user's credits with the redeemable total.
type CreditSummary struct {
	Credits              []models.UserCredit `json:"credits"`
	TotalAvailable       int64               `json:"total_available"`
	TotalAvailableRupees float64             `json:"total_available_rupees"`
}

// ListForUser returns all credits plus the currently redeemable total.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) (*CreditSummary, error) {
	credits, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if credits == nil {
		credits = []models.UserCredit{}
	}

	now := time.Now()
	var total int64
	for i := range credits {
		if credits[i].Available(now) {
			total += credits[i].Amount
		}
	}
	return &CreditSummary{
		Credits:              credits,
		TotalAvailable:       total,
		TotalAvailableRupees: models.Rupees(total),
	}, nil
}
