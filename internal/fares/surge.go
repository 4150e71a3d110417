package fares

import (
	"math"

	"github.com/safarides/safar-backend/pkg/geo"
	"github.com/safarides/safar-backend/pkg/models"
)

// Airport anchor used for proximity surge (Kempegowda International).
const (
	airportLat = 13.1986
	airportLng = 77.7066

	// airportRadiusKm is the straight-line distance within which a trip
	// endpoint counts as an airport trip.
	airportRadiusKm = 3.0

	// airportSurgeBonus is added on top of the time-of-day multiplier for
	// airport trips, after lifting to airportSurgeFloor.
	airportSurgeBonus = 0.05
	airportSurgeFloor = 1.10
)

// surgeCap limits the final multiplier per mode. Modes absent from the map
// are uncapped.
var surgeCap = map[models.TransportMode]float64{
	models.ModeBike: 1.30,
	models.ModeAuto: 1.40,
}

// SurgeMultiplier computes the surge for a trip at the given hour (0-23).
// Metro fares are regulated and never surge. Coordinates may be nil when the
// client did not send them; airport proximity is then skipped.
func SurgeMultiplier(mode models.TransportMode, hour int, pickupLat, pickupLng, dropoffLat, dropoffLng *float64) float64 {
	if mode == models.ModeMetro {
		return 1.0
	}

	surge := timeOfDayMultiplier(hour)

	if nearAirport(pickupLat, pickupLng) || nearAirport(dropoffLat, dropoffLng) {
		if surge < airportSurgeFloor {
			surge = airportSurgeFloor
		}
		surge += airportSurgeBonus
	}

	if limit, ok := surgeCap[mode]; ok && surge > limit {
		surge = limit
	}

	return math.Round(surge*100) / 100
}

// timeOfDayMultiplier returns the base multiplier for the hour: morning peak,
// evening peak, late night, or flat.
func timeOfDayMultiplier(hour int) float64 {
	switch {
	case hour >= 7 && hour < 10:
		return 1.20
	case hour >= 17 && hour < 21:
		return 1.30
	case hour >= 23 || hour < 5:
		return 1.15
	default:
		return 1.0
	}
}

func nearAirport(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	return geo.StraightLineKm(*lat, *lng, airportLat, airportLng) <= airportRadiusKm
}
