package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"SentinelAI/internal/domain"
)

// historicalAnalysisStage counts prior alerts with the same category and
// country inside the history window. Failure degrades to "no history".
func historicalAnalysisStage(deps StageDeps) Stage {
	window := deps.Config.HistoryWindow.Std()
	return Stage{
		Name:     "historical_analysis",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			if deps.Repository == nil {
				ec.HistoricalCount = 0
				ec.HasHistory = false
				return nil
			}
			since := ec.Alert.PublishedAt.Add(-window)
			count, err := deps.Repository.CountSimilar(ctx, ec.Category, ec.Country, since)
			if err != nil {
				return fmt.Errorf("count similar alerts: %w", err)
			}
			ec.HistoricalCount = count
			ec.HasHistory = count > 0
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.HistoricalCount = 0
			ec.HasHistory = false
		},
	}
}

// baselineMetricsStage loads per-category incident baselines for the
// alert's country. Zero-incident rows are dropped: "0 historical
// incidents" means "no baseline", never "known to be safe".
func baselineMetricsStage(deps StageDeps) Stage {
	return Stage{
		Name:     "baseline_metrics",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			if deps.Repository == nil || ec.Country == "" {
				ec.Baseline = nil
				return nil
			}
			rows, err := deps.Repository.CategoryBaseline(ctx, ec.Country)
			if err != nil {
				return fmt.Errorf("load category baseline: %w", err)
			}
			baseline := map[string]int{}
			for category, incidents := range rows {
				if incidents > 0 {
					baseline[category] = incidents
				}
			}
			if len(baseline) == 0 {
				baseline = nil
			}
			ec.Baseline = baseline
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Baseline = nil
		},
	}
}

// metadataStage records deterministic provenance fields. Wall-clock
// values stay out so re-running an unchanged alert reproduces the record
// byte for byte.
func metadataStage(deps StageDeps) Stage {
	return Stage{
		Name:     "metadata",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			if ec.Metadata == nil {
				ec.Metadata = map[string]string{}
			}
			ec.Metadata["source"] = ec.Alert.Source
			ec.Metadata["token_count"] = strconv.Itoa(len(tokenize(ec.Alert.Title + " " + ec.Alert.Body)))
			ec.Metadata["published_at"] = ec.Alert.PublishedAt.UTC().Format(time.RFC3339)
			if ec.ThreatScoreFallback {
				ec.Metadata["threat_score_origin"] = "lexicon_fallback"
			} else {
				ec.Metadata["threat_score_origin"] = "llm"
			}
			if ec.SummaryFallback {
				ec.Metadata["summary_origin"] = "truncation_fallback"
			} else {
				ec.Metadata["summary_origin"] = "llm"
			}
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			if ec.Metadata == nil {
				ec.Metadata = map[string]string{}
			}
			ec.Metadata["source"] = ec.Alert.Source
		},
	}
}

// regionalTrendStage compares incident counts of the current and previous
// windows for the alert's country. Failure degrades to "trend unknown".
func regionalTrendStage(deps StageDeps) Stage {
	window := deps.Config.HistoryWindow.Std()
	return Stage{
		Name:     "regional_trend",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			if deps.Repository == nil || ec.Country == "" {
				ec.RegionalTrend = 0
				ec.TrendKnown = false
				return nil
			}
			current, previous, err := deps.Repository.RegionCounts(ctx, ec.Country, window)
			if err != nil {
				return fmt.Errorf("region counts: %w", err)
			}
			denom := previous
			if denom < 1 {
				denom = 1
			}
			ec.RegionalTrend = float64(current-previous) / float64(denom)
			ec.TrendKnown = true
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.RegionalTrend = 0
			ec.TrendKnown = false
		},
	}
}
