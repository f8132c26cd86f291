package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

// RunResult is what one pipeline invocation hands back to the caller.
// Succeeded lets the caller decide whether to invoke the legacy
// single-pass enrichment path; the partial context survives even on
// abort so no stage work is lost.
type RunResult struct {
	Context     *domain.EnrichmentContext
	Record      domain.EnrichedAlert
	Succeeded   bool
	FailedStage string
	Err         error
}

// Pipeline runs the fixed, ordered stage list against one alert.
type Pipeline struct {
	stages  []Stage
	timeout time.Duration
	sink    ports.EventSink
	logger  *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(stages []Stage, timeout time.Duration, sink ports.EventSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		stages:  stages,
		timeout: timeout,
		sink:    sink,
		logger:  logger,
	}
}

// Run executes every stage in order against a fresh context for the
// alert. Critical-stage failures abort immediately and mark the alert
// enrichment_failed with the originating stage; non-critical failures
// restore the stage's documented defaults and continue. A caller timeout
// aborts mid-stage, recording the in-flight stage as failed-by-timeout
// while surfacing the partial context.
func (p *Pipeline) Run(ctx context.Context, alert domain.Alert) RunResult {
	return p.execute(ctx, domain.NewEnrichmentContext(alert))
}

// Resume re-enters the pipeline with the partial context surfaced by an
// aborted run. Stages that already succeeded keep their output and are
// skipped; the failed stage and everything after it run again.
func (p *Pipeline) Resume(ctx context.Context, prior *domain.EnrichmentContext) RunResult {
	if prior == nil {
		return p.fail(domain.NewEnrichmentContext(domain.Alert{}), "input_validation",
			&domain.ValidationError{Field: "context", Reason: "is required"}, time.Now())
	}
	return p.execute(ctx, prior)
}

func (p *Pipeline) execute(ctx context.Context, ec *domain.EnrichmentContext) RunResult {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	alert := ec.Alert

	done := map[string]bool{}
	for _, sr := range ec.Stages {
		if sr.Success {
			done[sr.Stage] = true
		}
	}

	if !done["input_validation"] {
		if err := validateAlert(alert); err != nil {
			ec.Record(domain.StageResult{Stage: "input_validation", Success: false, Err: err.Error()})
			p.observeStage("input_validation", alert.ID, 0, false)
			return p.fail(ec, "input_validation", err, started)
		}
		ec.Record(domain.StageResult{Stage: "input_validation", Success: true})
		p.observeStage("input_validation", alert.ID, 0, true)
	}

	for _, stage := range p.stages {
		if done[stage.Name] {
			continue
		}
		stageStart := time.Now()
		err, panicked := runStage(ctx, stage, ec)
		duration := time.Since(stageStart)

		if panicked {
			// Not a stage failure but a defect in the staged machinery;
			// handed back raw so the caller can route to the legacy path.
			ec.Record(domain.StageResult{Stage: stage.Name, Success: false, Duration: duration, Err: err.Error()})
			p.observeStage(stage.Name, alert.ID, duration, false)
			return p.fail(ec, stage.Name, err, started)
		}

		timedOut := err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))

		result := domain.StageResult{
			Stage:    stage.Name,
			Success:  err == nil,
			Duration: duration,
			TimedOut: timedOut,
		}
		if err != nil {
			result.Err = err.Error()
		}
		ec.Record(result)
		p.observeStage(stage.Name, alert.ID, duration, err == nil)

		if err == nil {
			continue
		}
		if timedOut {
			return p.fail(ec, stage.Name, &domain.StageError{Stage: stage.Name, Err: err}, started)
		}
		if stage.Critical {
			return p.fail(ec, stage.Name, &domain.StageError{Stage: stage.Name, Err: err}, started)
		}

		if stage.Default != nil {
			stage.Default(ec)
		}
		if p.logger != nil {
			p.logger.Warn("stage degraded to defaults",
				"stage", stage.Name, "alert_id", alert.ID, "error", err)
		}
	}

	if err := validateOutput(ec); err != nil {
		return p.fail(ec, "output_validation", err, started)
	}

	duration := time.Since(started)
	if p.sink != nil {
		p.sink.RunObserved(duration, true)
	}
	if p.logger != nil {
		p.logger.Info("pipeline complete",
			"alert_id", alert.ID, "stages", len(ec.Stages), "duration", duration,
			"threat_score", ec.ThreatScore, "category", ec.Category)
	}

	return RunResult{
		Context:   ec,
		Record:    ec.Snapshot(domain.StatusEnriched, "", ""),
		Succeeded: true,
	}
}

func (p *Pipeline) fail(ec *domain.EnrichmentContext, stage string, err error, started time.Time) RunResult {
	duration := time.Since(started)
	if p.sink != nil {
		p.sink.RunObserved(duration, false)
	}
	if p.logger != nil {
		p.logger.Error("pipeline aborted",
			"alert_id", ec.Alert.ID, "stage", stage, "duration", duration, "error", err)
	}
	return RunResult{
		Context:     ec,
		Record:      ec.Snapshot(domain.StatusFailed, stage, err.Error()),
		Succeeded:   false,
		FailedStage: stage,
		Err:         err,
	}
}

func (p *Pipeline) observeStage(stage, alertID string, duration time.Duration, success bool) {
	if p.sink != nil {
		p.sink.StageObserved(stage, duration, success)
	}
	if p.logger != nil {
		p.logger.Info("stage complete",
			"stage", stage, "alert_id", alertID, "duration", duration, "success", success)
	}
}

// runStage invokes one stage, converting a panic into a plain error that
// is deliberately not a StageError.
func runStage(ctx context.Context, stage Stage, ec *domain.EnrichmentContext) (err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.Name, r)
			panicked = true
		}
	}()
	return stage.Run(ctx, ec), false
}

// validateAlert checks the raw input contract before any stage runs.
func validateAlert(alert domain.Alert) error {
	if alert.ID == "" {
		return &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	if alert.Title == "" {
		return &domain.ValidationError{Field: "title", Reason: "is required"}
	}
	if alert.PublishedAt.IsZero() {
		return &domain.ValidationError{Field: "published_at", Reason: "is required"}
	}
	return nil
}

// validateOutput enforces the post-run contract: required fields present
// and all scores inside [0,1]. Missing fields after a successful run are
// a fatal validation error, never a silent default.
func validateOutput(ec *domain.EnrichmentContext) error {
	if ec.ThreatScore < 0 || ec.ThreatScore > 1 {
		return &domain.ValidationError{Field: "threat_score", Reason: "outside [0,1]"}
	}
	if ec.Confidence < 0 || ec.Confidence > 1 {
		return &domain.ValidationError{Field: "confidence", Reason: "outside [0,1]"}
	}
	if ec.Category == "" {
		return &domain.ValidationError{Field: "category", Reason: "is missing"}
	}
	if ec.Summary == "" {
		return &domain.ValidationError{Field: "summary", Reason: "is missing"}
	}
	if ec.RiskLevel == "" {
		return &domain.ValidationError{Field: "risk_level", Reason: "is missing"}
	}
	return nil
}
