package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
)

func tptr(t time.Time) *time.Time { return &t }

func TestScoreWeightedFactors(t *testing.T) {
	now := time.Now()
	p := &models.Provider{
		Reliability:     0.95,
		Rating:          4.6,
		TotalRides:      100,
		SuccessfulRides: 98,
		LastActiveAt:    tptr(now.Add(-30 * time.Minute)),
	}

	// 0.35*95 + 0.20*90 + 0.20*98 + 0.10*100 + 0.15*70
	if got := Score(p, now); got != 91.35 {
		t.Errorf("score = %v, want 91.35", got)
	}
}

func TestScoreNewProviderNeutralCompletion(t *testing.T) {
	now := time.Now()
	p := &models.Provider{
		Reliability: 0.85,
		Rating:      4.5,
		TotalRides:  0,
	}

	// 0.35*85 + 0.20*87.5 + 0.20*50 + 0.10*0 + 0.15*70
	if got := Score(p, now); got != 67.75 {
		t.Errorf("score = %v, want 67.75", got)
	}
}

func TestRecencySteps(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		last *time.Time
		want float64
	}{
		{"never active", nil, 0},
		{"under an hour", tptr(now.Add(-10 * time.Minute)), 100},
		{"under six hours", tptr(now.Add(-3 * time.Hour)), 80},
		{"under a day", tptr(now.Add(-20 * time.Hour)), 60},
		{"under three days", tptr(now.Add(-48 * time.Hour)), 30},
		{"stale", tptr(now.Add(-200 * time.Hour)), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recencyScore(tt.last, now); got != tt.want {
				t.Errorf("recency = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	now := time.Now()
	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	// Identical stats: scores tie, id decides.
	providers := []models.Provider{
		{ID: idB, Reliability: 0.9, Rating: 4.0, TotalRides: 10, SuccessfulRides: 9},
		{ID: idA, Reliability: 0.9, Rating: 4.0, TotalRides: 10, SuccessfulRides: 9},
	}

	for i := 0; i < 5; i++ {
		ranked := Rank(providers, now)
		if ranked[0].Provider.ID != idA {
			t.Fatalf("run %d: expected %s first, got %s", i, idA, ranked[0].Provider.ID)
		}
	}
}

func TestCriteriaForTripType(t *testing.T) {
	high := CriteriaForTripType(models.TripHighReliability)
	if high.MinReliability != 0.90 || high.MinRating != 4.0 {
		t.Errorf("high reliability criteria = %+v", high)
	}

	std := CriteriaForTripType(models.TripStandard)
	if std.MinReliability != 0.70 || std.MinRating != 3.0 {
		t.Errorf("standard criteria = %+v", std)
	}
}

type stubSource struct {
	providers []models.Provider
	err       error
}

func (s *stubSource) GetCandidates(context.Context, Criteria, []uuid.UUID) ([]models.Provider, error) {
	return s.providers, s.err
}

func TestFindBestEmptyPool(t *testing.T) {
	svc := NewService(&stubSource{})

	_, err := svc.FindBest(context.Background(), models.TripStandard, nil)
	if err == nil {
		t.Fatal("expected no-providers error")
	}
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.ErrorCode != common.CodeNoProviders {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindTopNOrdersBestFirst(t *testing.T) {
	now := time.Now()
	strong := models.Provider{
		ID: uuid.New(), Reliability: 0.98, Rating: 4.9,
		TotalRides: 200, SuccessfulRides: 198,
		LastActiveAt: tptr(now.Add(-5 * time.Minute)),
	}
	weak := models.Provider{
		ID: uuid.New(), Reliability: 0.72, Rating: 3.1,
		TotalRides: 40, SuccessfulRides: 25,
	}

	svc := NewService(&stubSource{providers: []models.Provider{weak, strong}})
	ranked, err := svc.FindTopN(context.Background(), models.TripStandard, nil, 2)
	if err != nil {
		t.Fatalf("find top n: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].Provider.ID != strong.ID {
		t.Error("expected the stronger provider ranked first")
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("scores not descending: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}
