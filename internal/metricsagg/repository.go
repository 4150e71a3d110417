package metricsagg

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutcomeDelta is one terminal booking folded into the per-day roll-up.
type OutcomeDelta struct {
	Successful bool
	Cancelled  bool
	Failed     bool
	Revenue    int64
	Commission int64
}

// Repository persists the per-provider, per-day roll-up and the provider's
// lifetime counters.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new metrics aggregation repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertDaily folds one outcome into the provider's row for the day. The
// (provider_id, date) unique constraint makes this a single atomic statement.
func (r *Repository) UpsertDaily(ctx context.Context, providerID uuid.UUID, day time.Time, d OutcomeDelta) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO provider_metrics (
			id, provider_id, date, total_bookings, successful, cancelled,
			failed, total_revenue, total_commission
		) VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_id, date) DO UPDATE SET
			total_bookings = provider_metrics.total_bookings + 1,
			successful = provider_metrics.successful + $4,
			cancelled = provider_metrics.cancelled + $5,
			failed = provider_metrics.failed + $6,
			total_revenue = provider_metrics.total_revenue + $7,
			total_commission = provider_metrics.total_commission + $8`,
		uuid.New(), providerID, day,
		boolToInt(d.Successful), boolToInt(d.Cancelled), boolToInt(d.Failed),
		d.Revenue, d.Commission,
	)
	return err
}

// BumpProvider advances the provider's lifetime counters and recomputed
// reliability in one statement. Reliability is successful/total rounded to
// two decimals; providers with no rides keep their current value.
func (r *Repository) BumpProvider(ctx context.Context, providerID uuid.UUID, successful bool, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE providers
		SET total_rides = total_rides + 1,
			successful_rides = successful_rides + $2,
			last_active_at = $3,
			reliability = ROUND((successful_rides + $2)::numeric / (total_rides + 1), 2),
			updated_at = NOW()
		WHERE id = $1`,
		providerID, boolToInt(successful), at,
	)
	return err
}

// RefreshDailyScore recomputes the day's reliability and on-time rate.
func (r *Repository) RefreshDailyScore(ctx context.Context, providerID uuid.UUID, day time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE provider_metrics
		SET reliability_score = CASE WHEN total_bookings > 0
				THEN ROUND(successful::numeric / total_bookings, 2) ELSE 0 END,
			on_time_rate = CASE WHEN (on_time + late) > 0
				THEN ROUND(on_time::numeric / (on_time + late), 2) ELSE 0 END
		WHERE provider_id = $1 AND date = $2`,
		providerID, day,
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
