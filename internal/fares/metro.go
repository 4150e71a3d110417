package fares

import (
	"math"
)

const (
	// metroStationGapKm is the assumed distance between adjacent stations.
	metroStationGapKm = 1.2

	// metroBoardingBufferMin covers entry, ticketing and platform wait.
	metroBoardingBufferMin = 5
)

// metroSlab maps a station count ceiling to a flat fare in minor units.
type metroSlab struct {
	maxStations int
	fare        int64
}

var metroSlabs = []metroSlab{
	{maxStations: 2, fare: 1000},
	{maxStations: 5, fare: 2000},
	{maxStations: 10, fare: 3000},
	{maxStations: 15, fare: 4000},
	{maxStations: 25, fare: 5000},
}

// metroSlabOverflowFare applies beyond the last slab.
const metroSlabOverflowFare int64 = 6000

// EstimateMetro prices the trip on every metro line. Metro fares are slab
// based on station count, never surged, and carry no provider.
func EstimateMetro(in Input) []MetroBreakdown {
	distanceKm := tripDistanceKm(in)

	stations := int(math.Round(distanceKm / metroStationGapKm))
	if stations < 1 {
		stations = 1
	}

	breakdowns := make([]MetroBreakdown, 0, len(metroLines))
	for _, line := range metroLines {
		lineStations := stations
		if lineStations > line.StationCount {
			lineStations = line.StationCount
		}
		breakdowns = append(breakdowns, MetroBreakdown{
			Line:        line.Name,
			Stations:    lineStations,
			Fare:        metroSlabFare(lineStations),
			DistanceKm:  distanceKm,
			DurationMin: int(math.Round(float64(lineStations)*line.AvgGapMin)) + metroBoardingBufferMin,
		})
	}
	return breakdowns
}

func metroSlabFare(stations int) int64 {
	for _, slab := range metroSlabs {
		if stations <= slab.maxStations {
			return slab.fare
		}
	}
	return metroSlabOverflowFare
}
