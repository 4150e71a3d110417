package admin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/models"
)

// Repository handles the admin read-side queries. It only reads; all writes
// go through the owning domain repositories.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new admin repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CountBookingsByState returns a state → count map over all bookings.
func (r *Repository) CountBookingsByState(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT state, COUNT(*) FROM bookings GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var count int64
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

// CountBookingsSince counts bookings created at or after the cutoff.
func (r *Repository) CountBookingsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE created_at >= $1`, since,
	).Scan(&count)
	return count, err
}

// CreditStatsSince returns how many credits were issued since the cutoff and
// their total amount.
func (r *Repository) CreditStatsSince(ctx context.Context, since time.Time) (count, amount int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM user_credits
		WHERE issued_at >= $1`, since,
	).Scan(&count, &amount)
	return count, amount, err
}

// ProviderCounts returns the pool size, how many providers are in rotation,
// and how many sit in an active pause window.
func (r *Repository) ProviderCounts(ctx context.Context) (total, active, paused int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE active AND (paused_until IS NULL OR paused_until < NOW())),
			COUNT(*) FILTER (WHERE paused_until IS NOT NULL AND paused_until >= NOW())
		FROM providers`,
	).Scan(&total, &active, &paused)
	return total, active, paused, err
}

// PlatformStats aggregates booking outcomes since the cutoff. Revenue and
// commission only count completed bookings.
func (r *Repository) PlatformStats(ctx context.Context, since time.Time) (*PlatformMetrics, error) {
	m := &PlatformMetrics{}
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'COMPLETED'),
			COUNT(*) FILTER (WHERE state = 'CANCELLED'),
			COUNT(*) FILTER (WHERE state = 'FAILED'),
			COUNT(*) FILTER (WHERE state = 'MANUAL_ESCALATION'),
			COUNT(*) FILTER (WHERE state = 'COMPLETED' AND recovery_attempts > 0),
			COALESCE(SUM(fare_actual) FILTER (WHERE state = 'COMPLETED'), 0),
			COALESCE(SUM(commission_amount) FILTER (WHERE state = 'COMPLETED'), 0)
		FROM bookings
		WHERE created_at >= $1`, since,
	).Scan(
		&m.TotalBookings, &m.Completed, &m.Cancelled, &m.Failed,
		&m.Escalated, &m.Recovered, &m.TotalRevenue, &m.TotalCommission,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

const bookingColumns = `
	id, user_id, user_phone, pickup, dropoff,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	trip_type, transport_mode, provider_id, state, previous_state,
	fare_estimate, fare_actual, commission_rate, commission_amount,
	recovery_attempts, manual_intervention, metadata,
	created_at, confirmed_at, started_at, completed_at, failed_at,
	timeout_at, updated_at`

// ListBookingsByStates returns bookings in any of the given states, oldest
// first so operators work the queue in arrival order.
func (r *Repository) ListBookingsByStates(ctx context.Context, states []models.BookingState, limit, offset int) ([]models.Booking, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE state = ANY($1)`, states,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE state = ANY($1)
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, states, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b := models.Booking{}
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.UserPhone, &b.Pickup, &b.Dropoff,
			&b.PickupLat, &b.PickupLng, &b.DropoffLat, &b.DropoffLng,
			&b.TripType, &b.TransportMode, &b.ProviderID, &b.State, &b.PreviousState,
			&b.FareEstimate, &b.FareActual, &b.CommissionRate, &b.CommissionAmount,
			&b.RecoveryAttempts, &b.ManualIntervention, &b.Metadata,
			&b.CreatedAt, &b.ConfirmedAt, &b.StartedAt, &b.CompletedAt, &b.FailedAt,
			&b.TimeoutAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}
