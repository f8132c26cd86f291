package usecase

import (
	"context"
	"fmt"
	"strings"

	"SentinelAI/internal/domain"
)

// locationStage resolves the alert's raw location string to coordinates,
// going through the geocode cache first and storing live results back.
// A cache miss is not an error; an unparseable or absent location leaves
// confidence at zero.
func locationStage(deps StageDeps) Stage {
	return Stage{
		Name:     "location",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			city, country, ok := splitLocation(ec.Alert.Location)
			if !ok {
				ec.LocationConfidence = 0
				return nil
			}
			ec.City = city
			ec.Country = country

			if deps.Cache != nil {
				entry, found, err := deps.Cache.Lookup(ctx, city, country)
				if err != nil {
					return fmt.Errorf("geocode cache lookup: %w", err)
				}
				if found {
					ec.Latitude = entry.Latitude
					ec.Longitude = entry.Longitude
					ec.LocationConfidence = 0.9
					return nil
				}
			}

			if deps.Geocoder == nil {
				ec.LocationConfidence = 0.3
				return nil
			}

			lat, lon, found, err := deps.Geocoder.Geocode(ctx, city, country)
			if err != nil {
				return fmt.Errorf("geocode %s, %s: %w", city, country, err)
			}
			if !found {
				ec.LocationConfidence = 0.2
				return nil
			}

			ec.Latitude = lat
			ec.Longitude = lon
			ec.LocationConfidence = 0.8

			if deps.Cache != nil {
				if err := deps.Cache.Store(ctx, city, country, lat, lon); err != nil {
					return fmt.Errorf("geocode cache store: %w", err)
				}
			}
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Latitude = 0
			ec.Longitude = 0
			ec.LocationConfidence = 0
		},
	}
}

// splitLocation parses "City, Country" shaped strings. Single-segment
// values are treated as a country tag.
func splitLocation(raw string) (city, country string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) == 1 {
		return "", strings.TrimSpace(parts[0]), true
	}
	city = strings.TrimSpace(parts[0])
	country = strings.TrimSpace(parts[1])
	if city == "" && country == "" {
		return "", "", false
	}
	return city, country, true
}
