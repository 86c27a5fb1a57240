package riskstate

import (
	"log/slog"
	"sync"
)

// breakerState is the two-state circuit breaker state machine. There is no
// half-open probe in this design: only an explicit Reset returns the
// breaker to Closed.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
)

// CircuitBreaker trips to Open after a configurable number of consecutive
// failures, and stays there until explicitly Reset. While Open, callers must
// refuse to attempt the guarded operation.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	failureCount     int
	state            breakerState
	lastReason       string

	logger *slog.Logger
}

// NewCircuitBreaker creates a breaker with the given name (for logging) and
// failure threshold (default 3 per the spec).
func NewCircuitBreaker(name string, failureThreshold int, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		logger:           logger.With("component", "circuit_breaker", "breaker", name),
	}
}

// IsOpen reports whether the breaker is currently tripped.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == stateOpen
}

// RecordFailure increments the failure counter and trips the breaker at the
// configured threshold.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastReason = reason

	if cb.state == stateClosed && cb.failureCount >= cb.failureThreshold {
		cb.state = stateOpen
		cb.logger.Error("circuit breaker tripped open", "reason", reason, "failures", cb.failureCount)
	}
}

// RecordSuccess resets the failure counter. It does not itself close an
// already-open breaker — only Reset does that, matching the no-auto-half-open
// design: a single success shouldn't mask a systemic failure while the
// breaker is tripped.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
}

// Reset returns the breaker to Closed. Operator-initiated.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = stateClosed
	cb.failureCount = 0
	cb.lastReason = ""
	cb.logger.Info("circuit breaker reset")
}
