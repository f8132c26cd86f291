package usecase

import (
	"context"
	"errors"
	"fmt"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/provider"
)

// relevanceFilterStage computes a lexicon-based relevance score and flags
// alerts below the configured threshold. The flag is advisory: downstream
// stages still run so the persisted record carries the full picture.
func relevanceFilterStage(deps StageDeps) Stage {
	threshold := deps.Config.RelevanceThreshold
	return Stage{
		Name:     "relevance_filter",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			score := 0.0
			hits := 0
			for _, token := range tokenize(ec.Alert.Title + " " + ec.Alert.Body) {
				if w, ok := threatLexicon[token]; ok {
					hits++
					if w > score {
						score = w
					}
				}
			}
			if hits > 1 {
				score += 0.05 * float64(hits-1)
			}
			if score > 1 {
				score = 1
			}
			ec.RelevanceScore = score
			ec.Relevant = score >= threshold
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			// Unknown relevance keeps the alert in the pipeline.
			ec.RelevanceScore = 0
			ec.Relevant = true
		},
	}
}

// threatScoringStage asks the routed provider for a 0-100 threat score.
// When every circuit is open it degrades to the documented lexicon
// fallback instead of failing the alert; any other failure aborts the
// pipeline because a threat score is a required output.
func threatScoringStage(deps StageDeps) Stage {
	return Stage{
		Name:     "threat_scoring",
		Critical: true,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			prompt := fmt.Sprintf(
				"Rate the security threat of this alert from 0 to 100. Respond with the number only.\n\nTitle: %s\n\n%s",
				ec.Alert.Title, truncate(ec.Alert.Body, 2000))

			text, err := deps.complete(ctx, provider.TaskEnrichment, prompt)
			if errors.Is(err, domain.ErrNoProviderAvailable) {
				ec.ThreatScore = keywordThreatScore(ec.Alert)
				ec.ThreatScoreFallback = true
				return nil
			}
			if err != nil {
				return err
			}

			raw, err := parseScore(text)
			if err != nil {
				return err
			}
			score, err := domain.NormalizeScore(raw)
			if err != nil {
				return err
			}
			ec.ThreatScore = score
			return nil
		},
	}
}

// confidenceStage blends location confidence, relevance, and source trust
// into one confidence figure. Pure arithmetic over earlier stage output.
func confidenceStage(deps StageDeps) Stage {
	return Stage{
		Name:     "confidence",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			sourceWeight := 0.5
			if ec.Alert.Source != "" {
				sourceWeight = 0.8
			}
			confidence := 0.5*ec.LocationConfidence + 0.3*ec.RelevanceScore + 0.2*sourceWeight
			if ec.ThreatScoreFallback {
				// Heuristic scores carry less certainty than model scores.
				confidence *= 0.8
			}
			normalized, err := domain.NormalizeScore(confidence)
			if err != nil {
				return err
			}
			ec.Confidence = normalized
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.Confidence = 0.5
		},
	}
}

// riskAnalysisStage derives the operator-facing risk level from the
// threat score weighted by confidence.
func riskAnalysisStage(deps StageDeps) Stage {
	return Stage{
		Name:     "risk_analysis",
		Critical: false,
		Run: func(ctx context.Context, ec *domain.EnrichmentContext) error {
			risk := ec.ThreatScore * (0.5 + 0.5*ec.Confidence)
			switch {
			case risk >= 0.75:
				ec.RiskLevel = "severe"
			case risk >= 0.5:
				ec.RiskLevel = "high"
			case risk >= 0.25:
				ec.RiskLevel = "moderate"
			default:
				ec.RiskLevel = "low"
			}
			return nil
		},
		Default: func(ec *domain.EnrichmentContext) {
			ec.RiskLevel = "unknown"
		},
	}
}
