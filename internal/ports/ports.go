package ports

import (
	"context"
	"time"

	"SentinelAI/internal/domain"
)

// AlertSource pulls fresh alerts from upstream feeds.
type AlertSource interface {
	FetchSince(ctx context.Context, since time.Time) ([]domain.Alert, error)
}

// AlertRepository persists enrichment outcomes and serves the historical
// queries the analysis stages depend on.
type AlertRepository interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	SaveEnriched(ctx context.Context, alert domain.EnrichedAlert) error
	MarkFailed(ctx context.Context, alertID, stage, reason string) error
	CountSimilar(ctx context.Context, category, country string, since time.Time) (int, error)
	CategoryBaseline(ctx context.Context, country string) (map[string]int, error)
	RegionCounts(ctx context.Context, country string, window time.Duration) (current, previous int, err error)
}

// GeocodeCache memoizes (city, country) -> coordinates. A lookup miss is
// not an error; it tells the caller to geocode live and then Store.
type GeocodeCache interface {
	Lookup(ctx context.Context, city, country string) (domain.GeocodeEntry, bool, error)
	Store(ctx context.Context, city, country string, lat, lon float64) error
}

// Geocoder resolves place names via an external geocoding API.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (lat, lon float64, found bool, err error)
}

// Completer is one LLM provider reduced to its single pipeline-facing
// operation. Provider-specific auth and formatting live behind it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EventSink consumes the structured events the pipeline emits for
// external logging/metrics systems.
type EventSink interface {
	StageObserved(stage string, duration time.Duration, success bool)
	RunObserved(duration time.Duration, success bool)
	ProviderUsed(provider string)
	CircuitStateChanged(provider, state string)
}

// Notifier streams digests of enriched alerts to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when enrichment cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
