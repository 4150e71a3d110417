package fares

import "github.com/safarides/safar-backend/pkg/models"

// DefaultFareMinorUnits is returned when no coordinates are available and
// the mode has no tier table to price against.
const DefaultFareMinorUnits int64 = 15000

// defaultDistanceKm is assumed when either endpoint lacks coordinates.
const defaultDistanceKm = 12.0

// durationBufferMin is the fixed pickup/dispatch buffer added to every
// duration estimate.
const durationBufferMin = 3

// Tier is one price band within a transport mode. Monetary values are minor
// units (paise).
type Tier struct {
	Name    string
	Base    int64
	PerKm   int64
	PerMin  int64
	MinFare int64
}

// tierTable is the static fare configuration per mode.
var tierTable = map[models.TransportMode][]Tier{
	models.ModeCab: {
		{Name: "Economy", Base: 5000, PerKm: 1200, PerMin: 150, MinFare: 8000},
		{Name: "Comfort", Base: 7000, PerKm: 1500, PerMin: 200, MinFare: 12000},
		{Name: "Premium", Base: 10000, PerKm: 1800, PerMin: 250, MinFare: 18000},
	},
	models.ModeBike: {
		{Name: "Standard", Base: 2000, PerKm: 700, PerMin: 0, MinFare: 3000},
	},
	models.ModeAuto: {
		{Name: "Standard", Base: 3000, PerKm: 1000, PerMin: 100, MinFare: 5000},
	},
}

// speedKmh is the assumed average speed per mode.
var speedKmh = map[models.TransportMode]float64{
	models.ModeCab:   22,
	models.ModeBike:  28,
	models.ModeAuto:  20,
	models.ModeMetro: 35,
}

// Input is a fare computation request. Hour and SurgeOverride exist for
// deterministic tests; production callers leave them nil.
type Input struct {
	Mode       models.TransportMode
	PickupLat  *float64
	PickupLng  *float64
	DropoffLat *float64
	DropoffLng *float64

	// DistanceKm, when set, wins over coordinate-derived distance. Clients
	// with an actual routed distance send it here.
	DistanceKm    *float64
	Hour          *int
	SurgeOverride *float64
}

// Breakdown is a fully priced tier.
type Breakdown struct {
	Tier           string  `json:"tier"`
	BaseFare       int64   `json:"base_fare"`
	DistanceCharge int64   `json:"distance_charge"`
	TimeCharge     int64   `json:"time_charge"`
	Subtotal       int64   `json:"subtotal"`
	Surge          float64 `json:"surge"`
	SurgeCharge    int64   `json:"surge_charge"`
	TotalFare      int64   `json:"total_fare"`
	MinFareApplied bool    `json:"min_fare_applied"`
	DistanceKm     float64 `json:"distance_km"`
	DurationMin    int     `json:"duration_min"`
}

// MetroLine is a known metro line with its slab cap and inter-station gap.
type MetroLine struct {
	Name         string
	StationCount int
	AvgGapMin    float64
}

// metroLines is the static metro network configuration.
var metroLines = []MetroLine{
	{Name: "Purple Line", StationCount: 37, AvgGapMin: 2.2},
	{Name: "Green Line", StationCount: 30, AvgGapMin: 2.4},
	{Name: "Yellow Line", StationCount: 16, AvgGapMin: 2.0},
}

// MetroBreakdown is a priced metro option on one line.
type MetroBreakdown struct {
	Line        string  `json:"line"`
	Stations    int     `json:"stations"`
	Fare        int64   `json:"fare"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
}
