package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"SentinelAI/internal/config"
	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
	"SentinelAI/internal/provider"
)

// Stage is one self-contained enrichment transformation. Stages are data:
// the pipeline executes them strictly in the order they were built, so a
// stage may read fields written by earlier stages but never later ones.
type Stage struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context, ec *domain.EnrichmentContext) error
	// Default restores the stage's documented default values when a
	// non-critical run fails.
	Default func(ec *domain.EnrichmentContext)
}

// StageDeps wires external collaborators into the stage set.
type StageDeps struct {
	Cache      ports.GeocodeCache
	Geocoder   ports.Geocoder
	Router     *provider.Router
	Completers map[string]ports.Completer
	Repository ports.AlertRepository
	Config     config.PipelineConfig
	Logger     *slog.Logger
}

// complete routes one prompt through the provider router, resolving the
// chosen provider id to its client.
func (d StageDeps) complete(ctx context.Context, task provider.TaskType, prompt string) (string, error) {
	var out string
	err := d.Router.Execute(ctx, task, func(ctx context.Context, name string) error {
		client, ok := d.Completers[name]
		if !ok {
			return fmt.Errorf("no client registered for provider %s", name)
		}
		text, err := client.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

// BuildStages assembles the fixed stage order from configuration. Stages
// named in DisabledStages are dropped at startup; critical stages cannot
// be disabled.
func BuildStages(deps StageDeps) []Stage {
	disabled := map[string]bool{}
	for _, name := range deps.Config.DisabledStages {
		disabled[name] = true
	}

	all := []Stage{
		locationStage(deps),
		relevanceFilterStage(deps),
		threatScoringStage(deps),
		confidenceStage(deps),
		riskAnalysisStage(deps),
		llmSummaryStage(deps),
		categoryStage(deps),
		contentFilterStage(deps),
		domainDetectionStage(deps),
		historicalAnalysisStage(deps),
		baselineMetricsStage(deps),
		metadataStage(deps),
		regionalTrendStage(deps),
	}

	stages := make([]Stage, 0, len(all))
	for _, st := range all {
		if disabled[st.Name] && !st.Critical {
			continue
		}
		stages = append(stages, st)
	}
	return stages
}

var scoreExpr = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// parseScore extracts the first numeric token from an LLM response.
func parseScore(text string) (float64, error) {
	match := scoreExpr.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response %q", truncate(text, 80))
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", match, err)
	}
	return value, nil
}

// tokenize lowercases the text and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// threatLexicon weights terms that indicate a genuine security signal.
// It drives the relevance score and the provider-unavailable fallback
// threat score.
var threatLexicon = map[string]float64{
	"attack":     0.80,
	"bomb":       0.90,
	"bombing":    0.90,
	"explosion":  0.85,
	"shooting":   0.85,
	"gunfire":    0.80,
	"hostage":    0.80,
	"kidnapping": 0.75,
	"murder":     0.70,
	"riot":       0.60,
	"unrest":     0.55,
	"protest":    0.40,
	"evacuated":  0.55,
	"evacuation": 0.55,
	"threat":     0.60,
	"terror":     0.90,
	"terrorism":  0.90,
	"cyberattack": 0.80,
	"ransomware": 0.80,
	"breach":     0.60,
	"malware":    0.65,
	"outbreak":   0.55,
	"epidemic":   0.60,
	"earthquake": 0.60,
	"flood":      0.50,
	"hurricane":  0.60,
	"wildfire":   0.55,
	"collapse":   0.50,
	"strike":     0.35,
	"curfew":     0.50,
	"lockdown":   0.55,
}

// keywordThreatScore is the documented fallback score used when every
// provider circuit is open: the maximum lexicon weight found in the text,
// or a floor of 0.1 when nothing matches.
func keywordThreatScore(alert domain.Alert) float64 {
	best := 0.1
	for _, token := range tokenize(alert.Title + " " + alert.Body) {
		if w, ok := threatLexicon[token]; ok && w > best {
			best = w
		}
	}
	return best
}
