package domain

import "time"

// Alert is a core entity describing a raw item fetched from news/RSS feeds.
// It is immutable once ingested; the enrichment pipeline only reads it.
type Alert struct {
	ID          string
	Title       string
	Body        string
	URL         string
	Source      string
	Location    string
	PublishedAt time.Time
}

// EnrichmentStatus enumerates pipeline milestones for a persisted alert.
type EnrichmentStatus string

const (
	StatusIngested EnrichmentStatus = "ingested"
	StatusEnriched EnrichmentStatus = "enriched"
	StatusFailed   EnrichmentStatus = "enrichment_failed"
)

// EnrichedAlert is the persisted snapshot of a fully processed alert.
// It carries no wall-clock fields of its own so that re-running the
// pipeline against unchanged inputs reproduces it exactly.
type EnrichedAlert struct {
	Alert              Alert
	City               string
	Country            string
	Latitude           float64
	Longitude          float64
	LocationConfidence float64
	Relevant           bool
	RelevanceScore     float64
	ThreatScore        float64
	Confidence         float64
	RiskLevel          string
	Summary            string
	Category           string
	Domains            []string
	Filtered           bool
	FilterReason       string
	Metadata           map[string]string
	Status             EnrichmentStatus
	FailedStage        string
	FailureReason      string
}
