package provider

import (
	"sync"
	"time"
)

// CircuitState represents the state of a provider circuit.
type CircuitState int

const (
	// CircuitClosed allows calls through normally.
	CircuitClosed CircuitState = iota

	// CircuitOpen short-circuits calls without attempting the remote API.
	CircuitOpen

	// CircuitHalfOpen permits a single trial call after cool-down.
	CircuitHalfOpen
)

// String returns the human-readable name for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one provider's circuit. Thresholds are configuration,
// never hardwired: each provider may carry its own values.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before a half-open trial.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the documented defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is the per-provider failure gate.
//
// Closed passes calls through; N consecutive failures open it; after the
// cool-down a single trial call is admitted (half-open); the trial closes
// the circuit on success or reopens it, resetting the cool-down timer, on
// failure. A success in any state resets the consecutive-failure count.
//
// Safe for concurrent use; all transitions are atomic per breaker.
type Breaker struct {
	config BreakerConfig

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	trialInFlight       bool
	lastFailure         time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker with the given configuration.
// Non-positive threshold or cool-down values fall back to defaults.
func NewBreaker(config BreakerConfig) *Breaker {
	defaults := DefaultBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	return &Breaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// Allow reports whether a call may be attempted right now. In the open
// state it also performs the open->half-open transition once the cool-down
// has elapsed, admitting exactly one trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) >= b.config.Cooldown {
			b.state = CircuitHalfOpen
			b.trialInFlight = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure count; a half-open trial success closes
// the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	if b.state == CircuitHalfOpen {
		b.state = CircuitClosed
	}
	b.trialInFlight = false
}

// RecordFailure counts one failed attempt. In the closed state it opens
// the circuit once the threshold is reached; in half-open it reopens the
// circuit and restarts the cool-down timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case CircuitClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.config.FailureThreshold {
			b.state = CircuitOpen
		}
	case CircuitHalfOpen:
		b.state = CircuitOpen
		b.trialInFlight = false
		b.consecutiveFailures = b.config.FailureThreshold
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
