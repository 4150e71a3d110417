package fares

import (
	"math"
	"time"

	"github.com/safarides/safar-backend/pkg/common"
	"github.com/safarides/safar-backend/pkg/geo"
	"github.com/safarides/safar-backend/pkg/models"
)

// Estimate prices every tier of the requested mode. It is pure: all inputs
// arrive in Input and the result depends on nothing else, so quotes are
// reproducible. Metro requests go through EstimateMetro instead.
func Estimate(in Input) ([]Breakdown, error) {
	if in.Mode == models.ModeMetro {
		return nil, common.NewValidationError("metro fares are estimated per line")
	}

	tiers, ok := tierTable[in.Mode]
	if !ok {
		return nil, common.NewValidationError("unknown transport mode: " + string(in.Mode))
	}

	distanceKm := tripDistanceKm(in)
	durationMin := tripDurationMin(in.Mode, distanceKm)
	surge := resolveSurge(in)

	breakdowns := make([]Breakdown, 0, len(tiers))
	for _, tier := range tiers {
		breakdowns = append(breakdowns, priceTier(tier, distanceKm, durationMin, surge))
	}
	return breakdowns, nil
}

// priceTier applies the fare formula to a single tier: linear charges, then
// surge on the subtotal, then the minimum-fare clamp.
func priceTier(tier Tier, distanceKm float64, durationMin int, surge float64) Breakdown {
	distanceCharge := int64(math.Round(float64(tier.PerKm) * distanceKm))
	timeCharge := tier.PerMin * int64(durationMin)
	subtotal := tier.Base + distanceCharge + timeCharge
	surgeCharge := int64(math.Round(float64(subtotal) * (surge - 1.0)))

	total := subtotal + surgeCharge
	minApplied := false
	if total < tier.MinFare {
		total = tier.MinFare
		minApplied = true
	}

	return Breakdown{
		Tier:           tier.Name,
		BaseFare:       tier.Base,
		DistanceCharge: distanceCharge,
		TimeCharge:     timeCharge,
		Subtotal:       subtotal,
		Surge:          surge,
		SurgeCharge:    surgeCharge,
		TotalFare:      total,
		MinFareApplied: minApplied,
		DistanceKm:     distanceKm,
		DurationMin:    durationMin,
	}
}

// CheapestFare returns the lowest total across the mode's tiers (or metro
// lines). When the mode is unknown it falls back to DefaultFareMinorUnits so
// a booking can always be created.
func CheapestFare(in Input) int64 {
	if in.Mode == models.ModeMetro {
		lines := EstimateMetro(in)
		cheapest := lines[0].Fare
		for _, l := range lines[1:] {
			if l.Fare < cheapest {
				cheapest = l.Fare
			}
		}
		return cheapest
	}

	breakdowns, err := Estimate(in)
	if err != nil || len(breakdowns) == 0 {
		return DefaultFareMinorUnits
	}
	cheapest := breakdowns[0].TotalFare
	for _, b := range breakdowns[1:] {
		if b.TotalFare < cheapest {
			cheapest = b.TotalFare
		}
	}
	return cheapest
}

// tripDistanceKm resolves road distance from coordinates, or the citywide
// default when either endpoint is missing.
func tripDistanceKm(in Input) float64 {
	if in.DistanceKm != nil && *in.DistanceKm > 0 {
		return *in.DistanceKm
	}
	if in.PickupLat == nil || in.PickupLng == nil || in.DropoffLat == nil || in.DropoffLng == nil {
		return defaultDistanceKm
	}
	return geo.RoadKm(*in.PickupLat, *in.PickupLng, *in.DropoffLat, *in.DropoffLng)
}

// tripDurationMin estimates travel time from mode speed plus a fixed pickup
// buffer.
func tripDurationMin(mode models.TransportMode, distanceKm float64) int {
	speed := speedKmh[mode]
	if speed <= 0 {
		speed = speedKmh[models.ModeCab]
	}
	return int(math.Round(distanceKm/speed*60)) + durationBufferMin
}

func resolveSurge(in Input) float64 {
	if in.SurgeOverride != nil {
		return *in.SurgeOverride
	}
	hour := time.Now().Hour()
	if in.Hour != nil {
		hour = *in.Hour
	}
	return SurgeMultiplier(in.Mode, hour, in.PickupLat, in.PickupLng, in.DropoffLat, in.DropoffLng)
}
