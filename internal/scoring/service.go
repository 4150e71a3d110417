package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// CandidateSource abstracts the hard-filter query for testability.
type CandidateSource interface {
	GetCandidates(ctx context.Context, criteria Criteria, excludeIDs []uuid.UUID) ([]models.Provider, error)
}

// Service ranks providers for assignment.
type Service struct {
	source CandidateSource
}

// NewService creates a new scoring service
func NewService(source CandidateSource) *Service {
	return &Service{source: source}
}

// FindBest returns the single highest-scoring eligible provider for the trip
// type, or a no-providers error when the filtered pool is empty.
func (s *Service) FindBest(ctx context.Context, tripType models.TripType, excludeIDs []uuid.UUID) (*Candidate, error) {
	ranked, err := s.FindTopN(ctx, tripType, excludeIDs, 1)
	if err != nil {
		return nil, err
	}
	return &ranked[0], nil
}

// FindTopN returns up to n eligible providers, best first.
func (s *Service) FindTopN(ctx context.Context, tripType models.TripType, excludeIDs []uuid.UUID, n int) ([]Candidate, error) {
	criteria := CriteriaForTripType(tripType)

	providers, err := s.source.GetCandidates(ctx, criteria, excludeIDs)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		logger.WarnContext(ctx, "scoring produced empty candidate pool",
			zap.String("trip_type", string(tripType)),
			zap.Int("excluded", len(excludeIDs)),
		)
		return nil, common.NewNoProvidersError("no providers available for " + string(tripType))
	}

	ranked := Rank(providers, time.Now())
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	logger.DebugContext(ctx, "provider scoring completed",
		zap.String("trip_type", string(tripType)),
		zap.Int("pool_size", len(providers)),
		zap.Float64("top_score", ranked[0].Score),
	)
	return ranked, nil
}
