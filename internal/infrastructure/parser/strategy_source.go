package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"SentinelAI/internal/config"
	"SentinelAI/internal/domain"
	"SentinelAI/internal/feed"
	"SentinelAI/internal/ports"
)

// StrategySource implements AlertSource via registered feed strategies.
type StrategySource struct {
	registry *feed.Registry
	feeds    []config.FeedConfig
	logger   *slog.Logger
}

var _ ports.AlertSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined feeds.
func NewStrategySource(reg *feed.Registry, feeds []config.FeedConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		feeds:    feeds,
		logger:   log,
	}
}

// FetchSince iterates over configured feeds and executes their scanners.
func (s *StrategySource) FetchSince(ctx context.Context, since time.Time) ([]domain.Alert, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("feed registry is not configured")
	}

	s.debug("fetch cycle", "feeds", len(s.feeds), "since", since.Format(time.RFC3339))

	var aggregated []domain.Alert
	for _, feedCfg := range s.feeds {
		strategy, err := s.registry.Resolve(feedCfg.Scanner)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feedCfg.Name, err)
		}

		req := feed.Request{
			Since:    since,
			FeedName: feedCfg.Name,
			URL:      feedCfg.URL,
			Options:  feedCfg.Options,
		}

		alerts, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan feed %s: %w", feedCfg.Name, err)
		}

		for i := range alerts {
			if alerts[i].Source == "" {
				alerts[i].Source = feedCfg.Name
			}
		}
		s.debug("feed produced alerts", "feed", feedCfg.Name, "count", len(alerts))
		aggregated = append(aggregated, alerts...)
	}

	s.debug("strategy source done", "total_alerts", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
