package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

// TaskType selects which provider preference list applies to a call.
type TaskType string

const (
	TaskEnrichment         TaskType = "enrichment"
	TaskRealTimeSearch     TaskType = "real-time-search"
	TaskVerification       TaskType = "verification"
	TaskFallback           TaskType = "fallback"
	TaskCriticalValidation TaskType = "critical-validation"
)

// Routes maps each task type to its ordered provider preference list.
// It is configuration loaded at startup, read-only afterwards.
type Routes map[TaskType][]string

// DefaultRoutes returns the documented preference orders.
func DefaultRoutes() Routes {
	return Routes{
		TaskEnrichment:         {"moonshot", "grok", "deepseek", "openai"},
		TaskRealTimeSearch:     {"grok", "openai"},
		TaskVerification:       {"deepseek", "openai", "moonshot"},
		TaskFallback:           {"openai"},
		TaskCriticalValidation: {"openai", "deepseek"},
	}
}

// Router picks the first provider whose circuit admits a call, per the
// preference list for the task. Circuit-open rejections stay local to the
// router: callers only ever see "here is a provider" or "none available".
type Router struct {
	routes   Routes
	breakers map[string]*Breaker
	sink     ports.EventSink
	logger   *slog.Logger

	mu    sync.Mutex
	usage map[string]int
}

// NewRouter wires routes against an injected breaker map; breakers are
// shared process-wide state, the router itself holds only usage counters.
func NewRouter(routes Routes, breakers map[string]*Breaker, sink ports.EventSink, logger *slog.Logger) *Router {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &Router{
		routes:   routes,
		breakers: breakers,
		sink:     sink,
		logger:   logger,
		usage:    map[string]int{},
	}
}

// Pick returns the first available provider for the task, or ok=false when
// every candidate's circuit is open. A successful pick counts toward the
// provider's session usage.
func (r *Router) Pick(task TaskType) (string, bool) {
	return r.pick(task, nil)
}

func (r *Router) pick(task TaskType, skip map[string]bool) (string, bool) {
	for _, name := range r.routes[task] {
		if skip[name] {
			continue
		}
		breaker, ok := r.breakers[name]
		if !ok {
			continue
		}
		if !breaker.Allow() {
			continue
		}
		r.countUse(name)
		return name, true
	}
	return "", false
}

// Execute walks the preference list for the task, invoking call for each
// admitted provider until one succeeds. Every attempt is recorded against
// that provider's breaker. When no candidate is admitted (or all attempts
// fail) it returns domain.ErrNoProviderAvailable so the caller can take
// its degradation path.
func (r *Router) Execute(ctx context.Context, task TaskType, call func(ctx context.Context, provider string) error) error {
	tried := map[string]bool{}
	var lastErr error

	for {
		name, ok := r.pick(task, tried)
		if !ok {
			if lastErr != nil {
				return fmt.Errorf("%w: %v", domain.ErrNoProviderAvailable, lastErr)
			}
			return domain.ErrNoProviderAvailable
		}
		tried[name] = true

		err := call(ctx, name)
		breaker := r.breakers[name]
		if err != nil {
			if ctx.Err() != nil {
				// Caller timeout or cancellation, not a provider problem;
				// it must not count against the provider's circuit.
				return ctx.Err()
			}
			breaker.RecordFailure()
			r.observeCircuit(name, breaker)
			r.debug("provider call failed", "task", string(task), "provider", name, "error", err)
			lastErr = err
			continue
		}
		breaker.RecordSuccess()
		r.observeCircuit(name, breaker)
		return nil
	}
}

// Usage returns a copy of the per-session provider usage counters.
func (r *Router) Usage() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.usage))
	for name, n := range r.usage {
		out[name] = n
	}
	return out
}

func (r *Router) countUse(name string) {
	r.mu.Lock()
	r.usage[name]++
	r.mu.Unlock()
	if r.sink != nil {
		r.sink.ProviderUsed(name)
	}
}

func (r *Router) observeCircuit(name string, breaker *Breaker) {
	if r.sink != nil {
		r.sink.CircuitStateChanged(name, breaker.State().String())
	}
}

func (r *Router) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
