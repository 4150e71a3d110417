package credits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/models"
)

// Repository handles user credit data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new credits repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores a new credit.
func (r *Repository) Insert(ctx context.Context, c *models.UserCredit) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_credits (
			id, user_id, user_phone, amount, reason, used,
			used_in_booking_id, issued_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.UserPhone, c.Amount, c.Reason, c.Used,
		c.UsedInBookingID, c.IssuedAt, c.ExpiresAt,
	)
	return err
}

// GetByUserAndBooking returns the compensation credit already issued for the
// booking, if any. This is the idempotency check.
func (r *Repository) GetByUserAndBooking(ctx context.Context, userID, bookingID uuid.UUID) (*models.UserCredit, error) {
	c := &models.UserCredit{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, user_phone, amount, reason, used, used_at,
			used_in_booking_id, issued_at, expires_at
		FROM user_credits
		WHERE user_id = $1 AND used_in_booking_id = $2 AND used = false
		LIMIT 1`, userID, bookingID,
	).Scan(
		&c.ID, &c.UserID, &c.UserPhone, &c.Amount, &c.Reason, &c.Used, &c.UsedAt,
		&c.UsedInBookingID, &c.IssuedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CountIssuedSince counts credits issued to the user since the given instant.
func (r *Repository) CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_credits
		WHERE user_id = $1 AND issued_at >= $2`, userID, since,
	).Scan(&count)
	return count, err
}

// ListByUser returns the user's credits, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserCredit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, user_phone, amount, reason, used, used_at,
			used_in_booking_id, issued_at, expires_at
		FROM user_credits
		WHERE user_id = $1
		ORDER BY issued_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []models.UserCredit
	for rows.Next() {
		c := models.UserCredit{}
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.UserPhone, &c.Amount, &c.Reason, &c.Used, &c.UsedAt,
			&c.UsedInBookingID, &c.IssuedAt, &c.ExpiresAt,
		); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
