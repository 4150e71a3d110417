package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/models"
)

// Weights for the provider scoring algorithm. They sum to 1.0; each factor is
// normalized to [0, 100] before weighting.
const (
	ReliabilityWeight = 0.35
	RatingWeight      = 0.20
	CompletionWeight  = 0.20
	RecencyWeight     = 0.10
	ProximityWeight   = 0.15

	// ProximityBaseline stands in for a live distance factor until provider
	// geolocation lands. TODO: replace with real pickup distance once
	// provider location pings are stored.
	ProximityBaseline = 70.0

	// NeutralCompletionScore is assigned to providers with no ride history,
	// so newcomers are neither boosted nor buried.
	NeutralCompletionScore = 50.0
)

// Criteria is the hard filter applied before any scoring.
type Criteria struct {
	MinReliability float64
	MinRating      float64
	MinTotalRides  int
}

// CriteriaForTripType maps a trip type to its filter thresholds.
func CriteriaForTripType(tripType models.TripType) Criteria {
	if tripType == models.TripHighReliability {
		return Criteria{MinReliability: 0.90, MinRating: 4.0, MinTotalRides: 10}
	}
	return Criteria{MinReliability: 0.70, MinRating: 3.0, MinTotalRides: 0}
}

// Candidate is a provider with its computed score.
type Candidate struct {
	Provider models.Provider `json:"provider"`
	Score    float64         `json:"score"`
}

// Score computes the weighted score for one provider at the given instant.
// Deterministic: same provider state and clock always produce the same score.
func Score(p *models.Provider, now time.Time) float64 {
	reliabilityScore := p.Reliability * 100

	ratingScore := (p.Rating - 1.0) / 4.0 * 100
	if ratingScore < 0 {
		ratingScore = 0
	}

	completionScore := NeutralCompletionScore
	if p.TotalRides > 0 {
		completionScore = float64(p.SuccessfulRides) / float64(p.TotalRides) * 100
	}

	score := ReliabilityWeight*reliabilityScore +
		RatingWeight*ratingScore +
		CompletionWeight*completionScore +
		RecencyWeight*recencyScore(p.LastActiveAt, now) +
		ProximityWeight*ProximityBaseline

	return math.Round(score*100) / 100
}

// recencyScore rewards recently active providers on a step scale. Providers
// that have never been active score zero.
func recencyScore(lastActiveAt *time.Time, now time.Time) float64 {
	if lastActiveAt == nil {
		return 0
	}
	switch elapsed := now.Sub(*lastActiveAt); {
	case elapsed < time.Hour:
		return 100
	case elapsed < 6*time.Hour:
		return 80
	case elapsed < 24*time.Hour:
		return 60
	case elapsed < 72*time.Hour:
		return 30
	default:
		return 10
	}
}

// Rank scores and sorts candidates best first. Ties break on provider id so
// two runs over the same pool agree on ordering.
func Rank(providers []models.Provider, now time.Time) []Candidate {
	candidates := make([]Candidate, 0, len(providers))
	for _, p := range providers {
		candidates = append(candidates, Candidate{Provider: p, Score: Score(&p, now)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Provider.ID.String() < candidates[j].Provider.ID.String()
	})
	return candidates
}

// ExcludeSet is a convenience for building NOT IN clauses from attempt
// history.
func ExcludeSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
