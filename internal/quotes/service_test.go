package quotes

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRanker struct {
	candidates []scoring.Candidate
	err        error
}

func (s *stubRanker) FindTopN(context.Context, models.TripType, []uuid.UUID, int) ([]scoring.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func candidate(name string, score float64) scoring.Candidate {
	return scoring.Candidate{
		Provider: models.Provider{ID: uuid.New(), Name: name},
		Score:    score,
	}
}

func newTestService(t *testing.T, ranker ProviderRanker) (*Service, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(store.Close)
	return NewService(ranker, store), store
}

func TestGetQuotesCabSheet(t *testing.T) {
	ranker := &stubRanker{candidates: []scoring.Candidate{
		candidate("Alpha", 85),
		candidate("Beta", 75),
	}}
	svc, _ := newTestService(t, ranker)

	dist := 10.0
	sheet, err := svc.GetQuotes(context.Background(), &QuoteRequest{
		Pickup:        "Indiranagar",
		Dropoff:       "Whitefield",
		DistanceKm:    &dist,
		TransportMode: models.ModeCab,
	})
	require.NoError(t, err)
	require.Len(t, sheet.Quotes, 3)

	// Providers rotate over the tiers.
	assert.Equal(t, "Alpha", sheet.Quotes[0].ProviderName)
	assert.Equal(t, "Beta", sheet.Quotes[1].ProviderName)
	assert.Equal(t, "Alpha", sheet.Quotes[2].ProviderName)

	for _, q := range sheet.Quotes {
		assert.NotNil(t, q.ProviderID)
		assert.Positive(t, q.FarePaise)
	}
}

func TestGetQuotesTags(t *testing.T) {
	ranker := &stubRanker{candidates: []scoring.Candidate{
		candidate("Elite", 93),
		candidate("Plain", 70),
	}}
	svc, _ := newTestService(t, ranker)

	dist := 10.0
	sheet, err := svc.GetQuotes(context.Background(), &QuoteRequest{
		Pickup:        "A",
		Dropoff:       "B but longer",
		DistanceKm:    &dist,
		TransportMode: models.ModeCab,
	})
	require.NoError(t, err)

	var cheapest, premium, best *Quote
	for i := range sheet.Quotes {
		for _, tag := range sheet.Quotes[i].Tags {
			switch tag {
			case models.TagCheapest:
				cheapest = &sheet.Quotes[i]
			case models.TagPremium:
				premium = &sheet.Quotes[i]
			case models.TagBest:
				best = &sheet.Quotes[i]
			}
		}
	}

	require.NotNil(t, cheapest)
	require.NotNil(t, premium)
	assert.Equal(t, "Economy", cheapest.Tier)
	assert.Equal(t, "Premium", premium.Tier)

	// The first quote backed by a 90+ provider gets BEST.
	require.NotNil(t, best)
	assert.Equal(t, "Elite", best.ProviderName)
}

func TestGetQuotesNoProviders(t *testing.T) {
	svc, _ := newTestService(t, &stubRanker{err: common.NewNoProvidersError("no providers available for STANDARD")})

	_, err := svc.GetQuotes(context.Background(), &QuoteRequest{
		Pickup:        "A street",
		Dropoff:       "B street",
		TransportMode: models.ModeAuto,
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNoProviders, appErr.ErrorCode)
}

func TestGetQuotesMetroHasNoProviders(t *testing.T) {
	// The ranker must not even be consulted for metro.
	svc, _ := newTestService(t, &stubRanker{err: common.NewNoProvidersError("should not be called")})

	dist := 6.0
	sheet, err := svc.GetQuotes(context.Background(), &QuoteRequest{
		Pickup:        "Majestic",
		Dropoff:       "Baiyappanahalli",
		DistanceKm:    &dist,
		TransportMode: models.ModeMetro,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sheet.Quotes)

	for _, q := range sheet.Quotes {
		assert.Nil(t, q.ProviderID)
		assert.Equal(t, models.ModeMetro, q.TransportMode)
	}
}

func TestQuoteItemsRedeemableFromCache(t *testing.T) {
	ranker := &stubRanker{candidates: []scoring.Candidate{candidate("Alpha", 85)}}
	svc, store := newTestService(t, ranker)
	ctx := context.Background()

	dist := 10.0
	sheet, err := svc.GetQuotes(ctx, &QuoteRequest{
		Pickup:        "A street",
		Dropoff:       "B street",
		DistanceKm:    &dist,
		TransportMode: models.ModeCab,
	})
	require.NoError(t, err)

	for _, q := range sheet.Quotes {
		var item models.QuoteCacheItem
		require.NoError(t, cache.GetJSON(ctx, store, cache.QuoteItemKey(q.ID.String()), &item))
		assert.Equal(t, q.FarePaise, item.FarePaise)
		assert.Equal(t, q.ProviderID, item.ProviderID)
		assert.Equal(t, q.TransportMode, item.TransportMode)
	}

	fetched, err := svc.GetSession(ctx, sheet.SessionID)
	require.NoError(t, err)
	assert.Len(t, fetched.Quotes, len(sheet.Quotes))
}

func TestQuoteJSONCarriesRupeeFare(t *testing.T) {
	raw, err := json.Marshal(Quote{
		ID:        uuid.New(),
		Tier:      "Comfort",
		FarePaise: 21500,
	})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 21500.0, out["fare_paise"])
	assert.Equal(t, 215.0, out["fare_rupees"])
}
