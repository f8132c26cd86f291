package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresGeocodeCache memoizes (city, country) -> coordinates in the
// geocode_cache table. The table's UNIQUE (city, country) constraint is a
// correctness precondition: the upsert relies on it, and a schema without
// it fails loudly at the storage layer instead of duplicating rows.
type PostgresGeocodeCache struct {
	db *sql.DB
}

var _ ports.GeocodeCache = (*PostgresGeocodeCache)(nil)

// NewPostgresGeocodeCache wires a sql.DB implementation.
func NewPostgresGeocodeCache(db *sql.DB) *PostgresGeocodeCache {
	return &PostgresGeocodeCache{db: db}
}

// Lookup returns the cached entry for the key. A miss is found=false,
// never an error.
func (c *PostgresGeocodeCache) Lookup(ctx context.Context, city, country string) (domain.GeocodeEntry, bool, error) {
	if c.db == nil {
		return domain.GeocodeEntry{}, false, nil
	}

	query, args, err := psql.
		Select("city", "country", "latitude", "longitude", "updated_at").
		From("geocode_cache").
		Where(sq.Eq{"city": city, "country": country}).
		ToSql()
	if err != nil {
		return domain.GeocodeEntry{}, false, fmt.Errorf("build lookup query: %w", err)
	}

	var entry domain.GeocodeEntry
	err = c.db.QueryRowContext(ctx, query, args...).
		Scan(&entry.City, &entry.Country, &entry.Latitude, &entry.Longitude, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeocodeEntry{}, false, nil
	}
	if err != nil {
		return domain.GeocodeEntry{}, false, fmt.Errorf("lookup geocode: %w", err)
	}

	return entry, true, nil
}

// Store upserts the key: an existing (city, country) row gets fresh
// coordinates and updated_at; concurrent stores for the same key resolve
// last-writer-wins inside Postgres.
func (c *PostgresGeocodeCache) Store(ctx context.Context, city, country string, lat, lon float64) error {
	if c.db == nil {
		return fmt.Errorf("geocode cache has no database")
	}

	query, args, err := buildGeocodeUpsert(city, country, lat, lon)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert geocode %s/%s: %w", city, country, err)
	}

	return nil
}

func buildGeocodeUpsert(city, country string, lat, lon float64) (string, []interface{}, error) {
	return psql.
		Insert("geocode_cache").
		Columns("city", "country", "latitude", "longitude", "updated_at").
		Values(city, country, lat, lon, sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (city, country) DO UPDATE
            SET latitude = EXCLUDED.latitude,
                longitude = EXCLUDED.longitude,
                updated_at = NOW()`).
		ToSql()
}
