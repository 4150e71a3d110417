package scoring

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safarides/safar-backend/pkg/models"
)

// Repository fetches scoring candidates. The hard filter runs in SQL so the
// candidate set stays small before the in-memory ranking pass.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new scoring repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetCandidates returns providers passing the hard filter: active, not under
// a live pause, above the trip type's reliability/rating floors, and not in
// the exclusion set (providers already tried for this booking).
func (r *Repository) GetCandidates(ctx context.Context, criteria Criteria, excludeIDs []uuid.UUID) ([]models.Provider, error) {
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, phone, type, vehicle_model, vehicle_plate,
			commission_rate, active, paused_until, pause_reason,
			reliability, rating, total_rides, successful_rides,
			last_active_at, created_at, updated_at
		FROM providers
		WHERE active = true
			AND (paused_until IS NULL OR paused_until < NOW())
			AND reliability >= $1
			AND rating >= $2
			AND total_rides >= $3
			AND id != ALL($4)`,
		criteria.MinReliability, criteria.MinRating, criteria.MinTotalRides, excludeIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []models.Provider
	for rows.Next() {
		p := models.Provider{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Phone, &p.Type, &p.VehicleModel, &p.VehiclePlate,
			&p.CommissionRate, &p.Active, &p.PausedUntil, &p.PauseReason,
			&p.Reliability, &p.Rating, &p.TotalRides, &p.SuccessfulRides,
			&p.LastActiveAt, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}
