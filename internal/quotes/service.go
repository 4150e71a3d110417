package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/fares"
	"github.com/safarides/safar-backend/internal/scoring"
	"github.com/safarides/safar-backend/pkg/cache"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

// bestScoreThreshold is the provider score at which a quote earns BEST.
const bestScoreThreshold = 90.0

// ProviderRanker finds scored providers to back quote tiers.
type ProviderRanker interface {
	FindTopN(ctx context.Context, tripType models.TripType, excludeIDs []uuid.UUID, n int) ([]scoring.Candidate, error)
}

// Service builds quote sheets and caches them for booking.
type Service struct {
	ranker ProviderRanker
	store  cache.Store
}

// NewService creates a new quote service
func NewService(ranker ProviderRanker, store cache.Store) *Service {
	return &Service{ranker: ranker, store: store}
}

// GetQuotes prices the trip, attaches providers round-robin, and caches the
// sheet plus one record per quote so bookings can redeem individual quotes.
func (s *Service) GetQuotes(ctx context.Context, req *QuoteRequest) (*QuoteSheet, error) {
	fareInput := fares.Input{
		Mode:       req.TransportMode,
		PickupLat:  req.PickupLat,
		PickupLng:  req.PickupLng,
		DropoffLat: req.DropoffLat,
		DropoffLng: req.DropoffLng,
		DistanceKm: req.DistanceKm,
	}

	var quotes []Quote
	var err error
	if req.TransportMode == models.ModeMetro {
		quotes = s.metroQuotes(fareInput)
	} else {
		quotes, err = s.providerQuotes(ctx, fareInput)
		if err != nil {
			return nil, err
		}
	}

	applyTags(quotes)

	sheet := &QuoteSheet{
		SessionID: uuid.New(),
		Quotes:    quotes,
		ExpiresAt: time.Now().Add(cache.QuoteTTL),
	}

	s.cacheSheet(ctx, sheet)
	metrics.QuotesServed.Inc()
	return sheet, nil
}

// providerQuotes pairs each fare tier with a scored provider. Providers
// rotate round-robin over the tiers so a small pool still covers the sheet.
func (s *Service) providerQuotes(ctx context.Context, in fares.Input) ([]Quote, error) {
	breakdowns, err := fares.Estimate(in)
	if err != nil {
		return nil, err
	}

	// Quote sheets always draw from the STANDARD pool; the reliability
	// preference is chosen at booking time.
	candidates, err := s.ranker.FindTopN(ctx, models.TripStandard, nil, maxQuoteProviders)
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(breakdowns))
	for i, b := range breakdowns {
		c := candidates[i%len(candidates)]
		providerID := c.Provider.ID
		score := c.Score
		quotes = append(quotes, Quote{
			ID:            uuid.New(),
			Tier:          b.Tier,
			TransportMode: in.Mode,
			ProviderID:    &providerID,
			ProviderName:  c.Provider.Name,
			ProviderScore: &score,
			FarePaise:     b.TotalFare,
			DistanceKm:    b.DistanceKm,
			DurationMin:   b.DurationMin,
		})
	}
	return quotes, nil
}

// metroQuotes prices every line. No provider backs a metro quote.
func (s *Service) metroQuotes(in fares.Input) []Quote {
	lines := fares.EstimateMetro(in)
	quotes := make([]Quote, 0, len(lines))
	for _, l := range lines {
		quotes = append(quotes, Quote{
			ID:            uuid.New(),
			Tier:          l.Line,
			TransportMode: models.ModeMetro,
			FarePaise:     l.Fare,
			DistanceKm:    l.DistanceKm,
			DurationMin:   l.DurationMin,
		})
	}
	return quotes
}

// applyTags marks the cheapest quote, the premium one, and the first quote
// backed by a top-scoring provider.
func applyTags(quotes []Quote) {
	if len(quotes) == 0 {
		return
	}

	cheapest, priciest := 0, 0
	for i, q := range quotes {
		if q.FarePaise < quotes[cheapest].FarePaise {
			cheapest = i
		}
		if q.FarePaise > quotes[priciest].FarePaise {
			priciest = i
		}
	}

	quotes[cheapest].Tags = append(quotes[cheapest].Tags, models.TagCheapest)
	if len(quotes) > 1 && priciest != cheapest {
		quotes[priciest].Tags = append(quotes[priciest].Tags, models.TagPremium)
	}

	for i := range quotes {
		if quotes[i].ProviderScore != nil && *quotes[i].ProviderScore >= bestScoreThreshold {
			quotes[i].Tags = append(quotes[i].Tags, models.TagBest)
			break
		}
	}
}

// cacheSheet writes the session record and one redeemable record per quote.
// Cache failures degrade quoting, not booking, so they only warn.
func (s *Service) cacheSheet(ctx context.Context, sheet *QuoteSheet) {
	if err := cache.SetJSON(ctx, s.store, cache.QuoteSessionKey(sheet.SessionID.String()), sheet, cache.QuoteTTL); err != nil {
		logger.WarnContext(ctx, "failed to cache quote session", zap.Error(err))
	}

	for _, q := range sheet.Quotes {
		item := models.QuoteCacheItem{
			ProviderID:    q.ProviderID,
			FarePaise:     q.FarePaise,
			TransportMode: q.TransportMode,
		}
		if err := cache.SetJSON(ctx, s.store, cache.QuoteItemKey(q.ID.String()), item, cache.QuoteTTL); err != nil {
			logger.WarnContext(ctx, "failed to cache quote item",
				zap.String("quote_id", q.ID.String()), zap.Error(err))
		}
	}
}

// GetSession returns a previously issued sheet, or nil when it expired.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*QuoteSheet, error) {
	var sheet QuoteSheet
	err := cache.GetJSON(ctx, s.store, cache.QuoteSessionKey(sessionID.String()), &sheet)
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}
