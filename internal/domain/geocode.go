package domain

import "time"

// GeocodeEntry is one memoized (city, country) -> coordinates row.
// At most one row exists per key; upserts refresh coordinates and
// UpdatedAt.
type GeocodeEntry struct {
	City      string
	Country   string
	Latitude  float64
	Longitude float64
	UpdatedAt time.Time
}
