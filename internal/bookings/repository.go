package bookings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

// Repository handles booking data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new booking repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `
	id, user_id, user_phone, pickup, dropoff,
	pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
	trip_type, transport_mode, provider_id, state, previous_state,
	fare_estimate, fare_actual, commission_rate, commission_amount,
	recovery_attempts, manual_intervention, metadata,
	created_at, confirmed_at, started_at, completed_at, failed_at,
	timeout_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.UserPhone, &b.Pickup, &b.Dropoff,
		&b.PickupLat, &b.PickupLng, &b.DropoffLat, &b.DropoffLng,
		&b.TripType, &b.TransportMode, &b.ProviderID, &b.State, &b.PreviousState,
		&b.FareEstimate, &b.FareActual, &b.CommissionRate, &b.CommissionAmount,
		&b.RecoveryAttempts, &b.ManualIntervention, &b.Metadata,
		&b.CreatedAt, &b.ConfirmedAt, &b.StartedAt, &b.CompletedAt, &b.FailedAt,
		&b.TimeoutAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a new booking row.
func (r *Repository) Create(ctx context.Context, b *models.Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (
			id, user_id, user_phone, pickup, dropoff,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			trip_type, transport_mode, state,
			fare_estimate, commission_rate, metadata,
			created_at, timeout_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18
		)`,
		b.ID, b.UserID, b.UserPhone, b.Pickup, b.Dropoff,
		b.PickupLat, b.PickupLng, b.DropoffLat, b.DropoffLng,
		b.TripType, b.TransportMode, b.State,
		b.FareEstimate, b.CommissionRate, b.Metadata,
		b.CreatedAt, b.TimeoutAt, b.UpdatedAt,
	)
	return err
}

// GetByID retrieves a booking by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// UpdateState persists a transition with an optimistic guard: the update only
// lands if the row is still in the expected state. A zero row count means a
// concurrent writer won, surfaced as an invalid transition.
func (r *Repository) UpdateState(ctx context.Context, b *models.Booking, expected models.BookingState) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET state = $3, previous_state = $4, provider_id = $5,
			fare_actual = $6, commission_rate = $7, commission_amount = $8,
			recovery_attempts = $9, manual_intervention = $10, metadata = $11,
			confirmed_at = $12, started_at = $13, completed_at = $14,
			failed_at = $15, updated_at = $16
		WHERE id = $1 AND state = $2`,
		b.ID, expected, b.State, b.PreviousState, b.ProviderID,
		b.FareActual, b.CommissionRate, b.CommissionAmount,
		b.RecoveryAttempts, b.ManualIntervention, b.Metadata,
		b.ConfirmedAt, b.StartedAt, b.CompletedAt,
		b.FailedAt, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewInvalidTransitionError(string(expected), string(b.State))
	}
	return nil
}

// SetRecoveryAttempts persists the recovery counter mid-ladder, so a restart
// resumes where the pipeline left off. Only a booking still in SEARCHING is
// touched; zero rows means the booking resolved meanwhile, which is fine.
func (r *Repository) SetRecoveryAttempts(ctx context.Context, bookingID uuid.UUID, attempts int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET recovery_attempts = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3`,
		bookingID, attempts, models.StateSearching,
	)
	return err
}

// ListByUser returns the user's bookings, newest first, with the total count.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Booking, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, total, rows.Err()
}

// InsertLog appends an audit record.
func (r *Repository) InsertLog(ctx context.Context, log *models.BookingLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_logs (id, booking_id, event, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ID, log.BookingID, log.Event, log.Message, log.Metadata, log.CreatedAt,
	)
	return err
}

// GetLogs returns the booking's audit trail, oldest first.
func (r *Repository) GetLogs(ctx context.Context, bookingID uuid.UUID) ([]models.BookingLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, event, message, metadata, created_at
		FROM booking_logs
		WHERE booking_id = $1
		ORDER BY created_at ASC`, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.BookingLog
	for rows.Next() {
		l := models.BookingLog{}
		if err := rows.Scan(&l.ID, &l.BookingID, &l.Event, &l.Message, &l.Metadata, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// InsertAttempt records an assignment attempt.
func (r *Repository) InsertAttempt(ctx context.Context, a *models.BookingAttempt) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_attempts (
			id, booking_id, provider_id, attempt_number, success,
			score, reliability, eta_minutes, fare, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.BookingID, a.ProviderID, a.AttemptNumber, a.Success,
		a.Score, a.Reliability, a.ETAMinutes, a.Fare, a.Metadata, a.CreatedAt,
	)
	return err
}

// GetAttempts returns assignment attempts, oldest first.
func (r *Repository) GetAttempts(ctx context.Context, bookingID uuid.UUID) ([]models.BookingAttempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, provider_id, attempt_number, success,
			score, reliability, eta_minutes, fare, metadata, created_at
		FROM booking_attempts
		WHERE booking_id = $1
		ORDER BY attempt_number ASC`, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.BookingAttempt
	for rows.Next() {
		a := models.BookingAttempt{}
		if err := rows.Scan(
			&a.ID, &a.BookingID, &a.ProviderID, &a.AttemptNumber, &a.Success,
			&a.Score, &a.Reliability, &a.ETAMinutes, &a.Fare, &a.Metadata, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// NextAttemptNumber returns the next 1-based attempt number for the booking.
func (r *Repository) NextAttemptNumber(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var next int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(attempt_number), 0) + 1
		FROM booking_attempts WHERE booking_id = $1`, bookingID,
	).Scan(&next)
	return next, err
}

// GetTimedOut returns SEARCHING bookings whose timeout has passed, oldest
// first, for the timeout sweeper.
func (r *Repository) GetTimedOut(ctx context.Context, limit int) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE state = $1 AND timeout_at < NOW()
		ORDER BY timeout_at ASC
		LIMIT $2`, models.StateSearching, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
