package usecase

import (
	"context"

	"SentinelAI/internal/domain"
)

// LegacyEnricher is the pre-pipeline single-pass enrichment path, kept
// as a backstop for unexpected staged-pipeline errors. It uses only the
// local lexicons: no providers, no geocoding, no history.
type LegacyEnricher struct {
	summaryMaxChars    int
	relevanceThreshold float64
}

// NewLegacyEnricher mirrors the pipeline's text bounds so both paths
// produce records with the same shape.
func NewLegacyEnricher(summaryMaxChars int, relevanceThreshold float64) *LegacyEnricher {
	if summaryMaxChars <= 0 {
		summaryMaxChars = 600
	}
	return &LegacyEnricher{
		summaryMaxChars:    summaryMaxChars,
		relevanceThreshold: relevanceThreshold,
	}
}

// Enrich computes the whole record in one pass.
func (l *LegacyEnricher) Enrich(ctx context.Context, alert domain.Alert) domain.EnrichedAlert {
	ec := domain.NewEnrichmentContext(alert)

	score := keywordThreatScore(alert)
	ec.ThreatScore = score
	ec.ThreatScoreFallback = true
	ec.RelevanceScore = score
	ec.Relevant = score >= l.relevanceThreshold
	ec.Confidence = 0.4
	switch {
	case score >= 0.75:
		ec.RiskLevel = "severe"
	case score >= 0.5:
		ec.RiskLevel = "high"
	case score >= 0.25:
		ec.RiskLevel = "moderate"
	default:
		ec.RiskLevel = "low"
	}
	ec.Summary = fallbackSummary(alert, l.summaryMaxChars)
	ec.SummaryFallback = true

	tokens := map[string]bool{}
	for _, t := range tokenize(alert.Title + " " + alert.Body) {
		tokens[t] = true
	}
	ec.Category = "general"
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if tokens[kw] {
				ec.Category = rule.category
				break
			}
		}
		if ec.Category != "general" {
			break
		}
	}
	ec.Domains = []string{"general"}
	ec.Metadata["source"] = alert.Source
	ec.Metadata["enrichment_path"] = "legacy"

	return ec.Snapshot(domain.StatusEnriched, "", "")
}
