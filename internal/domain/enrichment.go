package domain

import (
	"errors"
	"fmt"
	"time"
)

// EnrichmentContext is the mutable scratch space for one pipeline run.
// It is created per alert, owned exclusively by that run, and never
// shared between concurrent runs. Stages append to it in pipeline order;
// later stages may read fields written by earlier ones but never the
// reverse.
type EnrichmentContext struct {
	Alert Alert

	// location stage
	City               string
	Country            string
	Latitude           float64
	Longitude          float64
	LocationConfidence float64

	// relevance filter
	Relevant       bool
	RelevanceScore float64

	// threat scoring
	ThreatScore         float64
	ThreatScoreFallback bool

	// confidence calculation
	Confidence float64

	// risk analysis
	RiskLevel string

	// llm summary
	Summary         string
	SummaryFallback bool

	// category classification
	Category string

	// content filter
	Filtered     bool
	FilterReason string

	// domain detection
	Domains []string

	// historical analysis
	HistoricalCount int
	HasHistory      bool

	// baseline metrics; zero-incident rows are dropped on write
	Baseline map[string]int

	// metadata enrichment
	Metadata map[string]string

	// regional trend
	RegionalTrend float64
	TrendKnown    bool

	Stages []StageResult
}

// NewEnrichmentContext seeds the scratch space for one alert.
func NewEnrichmentContext(alert Alert) *EnrichmentContext {
	return &EnrichmentContext{
		Alert:    alert,
		Metadata: map[string]string{},
	}
}

// Record appends one stage outcome to the ordered stage log.
func (c *EnrichmentContext) Record(result StageResult) {
	c.Stages = append(c.Stages, result)
}

// Snapshot freezes the context into the persisted enrichment record.
func (c *EnrichmentContext) Snapshot(status EnrichmentStatus, failedStage, reason string) EnrichedAlert {
	return EnrichedAlert{
		Alert:              c.Alert,
		City:               c.City,
		Country:            c.Country,
		Latitude:           c.Latitude,
		Longitude:          c.Longitude,
		LocationConfidence: c.LocationConfidence,
		Relevant:           c.Relevant,
		RelevanceScore:     c.RelevanceScore,
		ThreatScore:        c.ThreatScore,
		Confidence:         c.Confidence,
		RiskLevel:          c.RiskLevel,
		Summary:            c.Summary,
		Category:           c.Category,
		Domains:            c.Domains,
		Filtered:           c.Filtered,
		FilterReason:       c.FilterReason,
		Metadata:           c.Metadata,
		Status:             status,
		FailedStage:        failedStage,
		FailureReason:      reason,
	}
}

// StageResult is the per-stage outcome appended to the context log.
type StageResult struct {
	Stage    string
	Success  bool
	Duration time.Duration
	Err      string
	TimedOut bool
}

// StageError marks a stage failure with its originating stage name.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ValidationError marks fatal input or output validation failures.
// It is never auto-corrected beyond the documented score rescaling.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// ErrNoProviderAvailable signals that every candidate provider for a task
// has an open circuit. Callers treat it as a degradation path, not a
// failure of the alert.
var ErrNoProviderAvailable = errors.New("no provider available")

// NormalizeScore rescales LLM-reported scores into [0,1]. Any value above
// 1 is taken to be on the 0-100 scale and divided by 100; values already
// in [0,1] pass through unchanged. Out-of-range results are a
// ValidationError, not a silent clamp.
func NormalizeScore(v float64) (float64, error) {
	if v < 0 {
		return 0, &ValidationError{Field: "score", Reason: fmt.Sprintf("negative value %v", v)}
	}
	if v > 1 {
		v = v / 100
	}
	if v > 1 {
		return 0, &ValidationError{Field: "score", Reason: fmt.Sprintf("value %v exceeds both scales", v)}
	}
	return v, nil
}
