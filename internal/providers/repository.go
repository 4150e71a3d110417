package providers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

const uniqueViolation = "23505"

// Repository handles provider data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new provider repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const providerColumns = `
	id, name, phone, type, vehicle_model, vehicle_plate,
	commission_rate, active, paused_until, pause_reason,
	reliability, rating, total_rides, successful_rides,
	last_active_at, created_at, updated_at`

func scanProvider(row interface{ Scan(...any) error }) (*models.Provider, error) {
	p := &models.Provider{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Phone, &p.Type, &p.VehicleModel, &p.VehiclePlate,
		&p.CommissionRate, &p.Active, &p.PausedUntil, &p.PauseReason,
		&p.Reliability, &p.Rating, &p.TotalRides, &p.SuccessfulRides,
		&p.LastActiveAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create registers a new provider. Phone uniqueness is enforced by the
// database; violations surface as conflicts.
func (r *Repository) Create(ctx context.Context, p *models.Provider) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO providers (
			id, name, phone, type, vehicle_model, vehicle_plate,
			commission_rate, active, reliability, rating,
			total_rides, successful_rides, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.Name, p.Phone, p.Type, p.VehicleModel, p.VehiclePlate,
		p.CommissionRate, p.Active, p.Reliability, p.Rating,
		p.TotalRides, p.SuccessfulRides, p.CreatedAt, p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.NewConflictError("provider with this phone already exists")
	}
	return err
}

// GetByID retrieves a provider by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	row := r.db.QueryRow(ctx, `SELECT`+providerColumns+` FROM providers WHERE id = $1`, id)
	return scanProvider(row)
}

// Update persists mutable profile fields. Ride counters and reliability move
// through the metrics pipeline only.
func (r *Repository) Update(ctx context.Context, p *models.Provider) error {
	_, err := r.db.Exec(ctx, `
		UPDATE providers
		SET name = $2, type = $3, vehicle_model = $4, vehicle_plate = $5,
			commission_rate = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Name, p.Type, p.VehicleModel, p.VehiclePlate,
		p.CommissionRate, p.Active, p.UpdatedAt,
	)
	return err
}

// SetPause sets or clears the pause window.
func (r *Repository) SetPause(ctx context.Context, id uuid.UUID, until *time.Time, reason *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE providers
		SET paused_until = $2, pause_reason = $3, updated_at = NOW()
		WHERE id = $1`,
		id, until, reason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("provider not found")
	}
	return nil
}

// List returns providers with an optional active filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Provider, int64, error) {
	where := ``
	args := []any{limit, offset}
	if filter.Active != nil {
		where = ` WHERE active = $3`
		args = append(args, *filter.Active)
	}

	var total int64
	countArgs := args[2:]
	countWhere := ``
	if filter.Active != nil {
		countWhere = ` WHERE active = $1`
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM providers`+countWhere, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT`+providerColumns+`
		FROM providers`+where+`
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		providers = append(providers, *p)
	}
	return providers, total, rows.Err()
}

// GetMetrics returns per-day metric rows since the given date, newest first.
func (r *Repository) GetMetrics(ctx context.Context, providerID uuid.UUID, since time.Time) ([]models.ProviderMetric, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, provider_id, date, total_bookings, successful, cancelled,
			rejected, failed, on_time, late, reliability_score, on_time_rate,
			total_revenue, total_commission
		FROM provider_metrics
		WHERE provider_id = $1 AND date >= $2
		ORDER BY date DESC`, providerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []models.ProviderMetric
	for rows.Next() {
		m := models.ProviderMetric{}
		if err := rows.Scan(
			&m.ID, &m.ProviderID, &m.Date, &m.TotalBookings, &m.Successful,
			&m.Cancelled, &m.Rejected, &m.Failed, &m.OnTime, &m.Late,
			&m.ReliabilityScore, &m.OnTimeRate, &m.TotalRevenue, &m.TotalCommission,
		); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ResumeExpiredPauses clears pause windows that have lapsed and returns how
// many providers came back into rotation. Called by the scheduler sweeper.
func (r *Repository) ResumeExpiredPauses(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE providers
		SET paused_until = NULL, pause_reason = NULL, updated_at = NOW()
		WHERE paused_until IS NOT NULL AND paused_until < NOW()`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
