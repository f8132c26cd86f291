package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

// PostgresAlertRepository persists enrichment outcomes into Postgres and
// serves the historical queries the analysis stages use.
type PostgresAlertRepository struct {
	db *sql.DB
}

var _ ports.AlertRepository = (*PostgresAlertRepository)(nil)

// NewPostgresAlertRepository wires a sql.DB implementation.
func NewPostgresAlertRepository(db *sql.DB) *PostgresAlertRepository {
	return &PostgresAlertRepository{db: db}
}

// AlreadyProcessed returns a map with IDs that already exist in storage.
func (r *PostgresAlertRepository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query := `SELECT external_id FROM alerts WHERE external_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.StringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveEnriched upserts the full enrichment snapshot.
func (r *PostgresAlertRepository) SaveEnriched(ctx context.Context, alert domain.EnrichedAlert) error {
	if r.db == nil {
		return fmt.Errorf("alert repository has no database")
	}

	query, args, err := buildAlertUpsert(alert)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert alert %s: %w", alert.Alert.ID, err)
	}

	return nil
}

func buildAlertUpsert(alert domain.EnrichedAlert) (string, []interface{}, error) {
	metadata, err := json.Marshal(alert.Metadata)
	if err != nil {
		return "", nil, fmt.Errorf("encode metadata: %w", err)
	}

	return psql.
		Insert("alerts").
		Columns("external_id", "title", "body", "url", "source", "country", "city",
			"latitude", "longitude", "location_confidence",
			"relevant", "relevance_score", "threat_score", "confidence",
			"risk_level", "summary", "category", "domains",
			"filtered", "filter_reason", "metadata", "status", "published_at", "updated_at").
		Values(alert.Alert.ID, alert.Alert.Title, alert.Alert.Body, alert.Alert.URL, alert.Alert.Source,
			alert.Country, alert.City,
			alert.Latitude, alert.Longitude, alert.LocationConfidence,
			alert.Relevant, alert.RelevanceScore, alert.ThreatScore, alert.Confidence,
			alert.RiskLevel, alert.Summary, alert.Category, pq.StringArray(alert.Domains),
			alert.Filtered, alert.FilterReason, metadata, string(alert.Status), alert.Alert.PublishedAt,
			sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (external_id) DO UPDATE
            SET threat_score = EXCLUDED.threat_score,
                confidence = EXCLUDED.confidence,
                risk_level = EXCLUDED.risk_level,
                summary = EXCLUDED.summary,
                category = EXCLUDED.category,
                domains = EXCLUDED.domains,
                filtered = EXCLUDED.filtered,
                filter_reason = EXCLUDED.filter_reason,
                metadata = EXCLUDED.metadata,
                status = EXCLUDED.status,
                failed_stage = NULL,
                failure_reason = NULL,
                updated_at = NOW()`).
		ToSql()
}

// MarkFailed records the enrichment_failed marker with the originating
// stage and reason for operator triage.
func (r *PostgresAlertRepository) MarkFailed(ctx context.Context, alertID, stage, reason string) error {
	if r.db == nil {
		return fmt.Errorf("alert repository has no database")
	}

	query, args, err := psql.
		Insert("alerts").
		Columns("external_id", "status", "failed_stage", "failure_reason", "updated_at").
		Values(alertID, string(domain.StatusFailed), stage, reason, sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (external_id) DO UPDATE
            SET status = EXCLUDED.status,
                failed_stage = EXCLUDED.failed_stage,
                failure_reason = EXCLUDED.failure_reason,
                updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build failure upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark alert %s failed: %w", alertID, err)
	}

	return nil
}

// CountSimilar counts enriched alerts with the same category and country
// published since the given time.
func (r *PostgresAlertRepository) CountSimilar(ctx context.Context, category, country string, since time.Time) (int, error) {
	if r.db == nil {
		return 0, nil
	}

	query, args, err := psql.
		Select("COUNT(*)").
		From("alerts").
		Where(sq.Eq{"category": category, "country": country, "status": string(domain.StatusEnriched)}).
		Where(sq.GtOrEq{"published_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count similar: %w", err)
	}
	return count, nil
}

// CategoryBaseline returns per-category incident counts for a country.
// The HAVING clause keeps zero-incident rows out at the source.
func (r *PostgresAlertRepository) CategoryBaseline(ctx context.Context, country string) (map[string]int, error) {
	if r.db == nil {
		return map[string]int{}, nil
	}

	query, args, err := psql.
		Select("category", "COUNT(*) AS incidents").
		From("alerts").
		Where(sq.Eq{"country": country, "status": string(domain.StatusEnriched)}).
		GroupBy("category").
		Having("COUNT(*) > 0").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build baseline query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query baseline: %w", err)
	}
	defer rows.Close()

	baseline := map[string]int{}
	for rows.Next() {
		var category string
		var incidents int
		if err := rows.Scan(&category, &incidents); err != nil {
			return nil, fmt.Errorf("scan baseline row: %w", err)
		}
		baseline[category] = incidents
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return baseline, nil
}

// RegionCounts returns incident counts for the current and previous
// window in one country, for trend analysis.
func (r *PostgresAlertRepository) RegionCounts(ctx context.Context, country string, window time.Duration) (int, int, error) {
	if r.db == nil {
		return 0, 0, nil
	}

	now := time.Now().UTC()
	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	current, err := r.countBetween(ctx, country, currentStart, now)
	if err != nil {
		return 0, 0, err
	}
	previous, err := r.countBetween(ctx, country, previousStart, currentStart)
	if err != nil {
		return 0, 0, err
	}
	return current, previous, nil
}

func (r *PostgresAlertRepository) countBetween(ctx context.Context, country string, from, to time.Time) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("alerts").
		Where(sq.Eq{"country": country, "status": string(domain.StatusEnriched)}).
		Where(sq.GtOrEq{"published_at": from}).
		Where(sq.Lt{"published_at": to}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build window count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count window: %w", err)
	}
	return count, nil
}
