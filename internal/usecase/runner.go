package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

// RunnerDeps wires all driven adapters into the cycle orchestration.
type RunnerDeps struct {
	Source   ports.AlertSource
	Repo     ports.AlertRepository
	Service  *Service
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Runner implements the alert-ingestion workflow: fetch, dedupe, enrich
// concurrently, persist, notify. One EnrichmentContext belongs to exactly
// one in-flight alert; alerts share nothing but the geocode cache and the
// provider circuit state behind the service.
type Runner struct {
	source   ports.AlertSource
	repo     ports.AlertRepository
	service  *Service
	notifier ports.Notifier
	logger   *slog.Logger

	workers         int
	lookback        time.Duration
	threatThreshold float64
}

// NewRunner constructs the orchestration component.
func NewRunner(deps RunnerDeps, workers int, lookback time.Duration, threatThreshold float64) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		source:          deps.Source,
		repo:            deps.Repo,
		service:         deps.Service,
		notifier:        deps.Notifier,
		logger:          deps.Logger,
		workers:         workers,
		lookback:        lookback,
		threatThreshold: threatThreshold,
	}
}

// ProcessCycle orchestrates one fetch-enrich-persist-notify cycle.
func (r *Runner) ProcessCycle(ctx context.Context, trigger time.Time) error {
	if r.source == nil || r.service == nil {
		return nil
	}

	alerts, err := r.source.FetchSince(ctx, trigger.Add(-r.lookback))
	if err != nil {
		return fmt.Errorf("fetch alerts: %w", err)
	}

	ids := make([]string, len(alerts))
	for i, alert := range alerts {
		ids[i] = alert.ID
	}

	skip := map[string]bool{}
	if r.repo != nil && len(ids) > 0 {
		skip, err = r.repo.AlreadyProcessed(ctx, ids)
		if err != nil {
			return fmt.Errorf("load processed: %w", err)
		}
	}

	jobs := make(chan domain.Alert)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		digest   []domain.EnrichedAlert
		failures int
	)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for alert := range jobs {
				record, enrichErr := r.service.Enrich(ctx, alert)
				if enrichErr != nil {
					r.persistFailure(ctx, record)
					mu.Lock()
					failures++
					mu.Unlock()
					continue
				}
				if r.repo != nil {
					if saveErr := r.repo.SaveEnriched(ctx, record); saveErr != nil {
						// Storage failures must never be swallowed silently.
						r.warn("persist enriched alert", "alert_id", alert.ID, "error", saveErr)
						mu.Lock()
						failures++
						mu.Unlock()
						continue
					}
				}
				if record.Filtered || record.ThreatScore < r.threatThreshold {
					continue
				}
				mu.Lock()
				digest = append(digest, record)
				mu.Unlock()
			}
		}()
	}

	queued := 0
	for _, alert := range alerts {
		if skip[alert.ID] {
			continue
		}
		queued++
		jobs <- alert
	}
	close(jobs)
	wg.Wait()

	r.info("cycle complete",
		"fetched", len(alerts), "enriched", queued-failures, "failed", failures, "digest", len(digest))

	if r.notifier == nil || len(digest) == 0 {
		return nil
	}

	sort.Slice(digest, func(i, j int) bool {
		return digest[i].ThreatScore > digest[j].ThreatScore
	})
	return r.notifier.PublishDigest(ctx, buildDigestMessage(digest))
}

func (r *Runner) persistFailure(ctx context.Context, record domain.EnrichedAlert) {
	if r.repo == nil {
		return
	}
	err := r.repo.MarkFailed(ctx, record.Alert.ID, record.FailedStage, record.FailureReason)
	if err != nil {
		r.warn("mark alert failed", "alert_id", record.Alert.ID, "error", err)
	}
}

func buildDigestMessage(records []domain.EnrichedAlert) string {
	var formatted string
	for _, record := range records {
		formatted += fmt.Sprintf("- [%s] %s\nThreat: %.2f | Confidence: %.2f | %s\n%s\n%s\n\n",
			record.RiskLevel,
			record.Alert.Title,
			record.ThreatScore,
			record.Confidence,
			record.Category,
			record.Summary,
			record.Alert.URL)
	}
	return formatted
}

func (r *Runner) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
