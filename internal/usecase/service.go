package usecase

import (
	"context"
	"errors"
	"log/slog"

	"SentinelAI/internal/domain"
)

// Service is the single enrichment entry point. It decides which path
// executes, the staged pipeline or the legacy single-pass enricher;
// callers never know which one ran.
type Service struct {
	pipeline       *Pipeline
	legacy         *LegacyEnricher
	legacyFallback bool
	logger         *slog.Logger
}

// NewService wires both enrichment paths.
func NewService(pipeline *Pipeline, legacy *LegacyEnricher, legacyFallback bool, logger *slog.Logger) *Service {
	return &Service{
		pipeline:       pipeline,
		legacy:         legacy,
		legacyFallback: legacyFallback,
		logger:         logger,
	}
}

// Enrich runs the staged pipeline. Expected failures (stage errors,
// validation errors, timeouts) surface as a failed record for operator
// triage. Anything else means the staged machinery itself misbehaved;
// when the legacy fallback is enabled the alert is re-enriched on the
// single-pass path instead of being lost.
func (s *Service) Enrich(ctx context.Context, alert domain.Alert) (domain.EnrichedAlert, error) {
	result := s.pipeline.Run(ctx, alert)
	if result.Succeeded {
		return result.Record, nil
	}

	if s.legacyFallback && s.legacy != nil && !expectedFailure(result.Err) {
		if s.logger != nil {
			s.logger.Warn("staged pipeline errored unexpectedly, using legacy path",
				"alert_id", alert.ID, "error", result.Err)
		}
		return s.legacy.Enrich(ctx, alert), nil
	}

	return result.Record, result.Err
}

func expectedFailure(err error) bool {
	var stageErr *domain.StageError
	var validationErr *domain.ValidationError
	return errors.As(err, &stageErr) ||
		errors.As(err, &validationErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
