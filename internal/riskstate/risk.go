// Package riskstate holds the shared risk counters and the circuit breaker
// that bounds order submission.
//
// Risk State has a single writer (Shield) and many readers (Brain, the
// status surface).
// The original design relied on a single-threaded cooperative scheduler to
// make this safe without locks; this implementation uses a plain
// sync.RWMutex instead, grounded on the mutex-guarded aggregate-state
// pattern in the risk manager this module descends from.
package riskstate

import (
	"log/slog"
	"sync"
)

// State tracks daily realized P&L, open exposure, and the halt flag.
// Halt is one-way here: Resume exists for operator use but nothing in this
// module calls it automatically.
type State struct {
	mu sync.RWMutex

	dailyRealizedPnLCents int64
	openExposureCents     int64
	tradesToday           int
	lastHaltReason        string
	halted                bool

	logger *slog.Logger
}

// New creates an empty risk state.
func New(logger *slog.Logger) *State {
	return &State{logger: logger.With("component", "risk_state")}
}

// ApplyFill records a fill: open exposure increases by cost*qty, and the
// trade counter advances. Cost is the average fill price in cents (per unit).
func (s *State) ApplyFill(avgPriceCents int, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openExposureCents += int64(avgPriceCents) * int64(quantity)
	s.tradesToday++
}

// ApplySettlement reconciles a closed position: realized P&L accrues and the
// corresponding exposure is released. Present in the data model for
// completeness; no agent in this pipeline invokes it, since settlement and
// exchange reconciliation are out of scope.
func (s *State) ApplySettlement(pnlCents int64, costCents int, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyRealizedPnLCents += pnlCents
	s.openExposureCents -= int64(costCents) * int64(quantity)
	if s.openExposureCents < 0 {
		s.openExposureCents = 0
	}
}

// Halt trips the halt flag. One-way: only Resume clears it.
func (s *State) Halt(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return
	}
	s.halted = true
	s.lastHaltReason = reason
	s.logger.Error("risk halt engaged", "reason", reason)
}

// Resume clears the halt flag. Operator-initiated; nothing in this pipeline
// calls it automatically.
func (s *State) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = false
	s.lastHaltReason = ""
	s.logger.Info("risk halt cleared")
}

// IsHalted reports whether trading is currently halted.
func (s *State) IsHalted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// Snapshot is a point-in-time copy of the risk counters, safe to read
// without holding any lock.
type Snapshot struct {
	DailyRealizedPnLCents int64
	OpenExposureCents     int64
	TradesToday           int
	Halted                bool
	LastHaltReason        string
}

// Snapshot returns the current risk counters.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		DailyRealizedPnLCents: s.dailyRealizedPnLCents,
		OpenExposureCents:     s.openExposureCents,
		TradesToday:           s.tradesToday,
		Halted:                s.halted,
		LastHaltReason:        s.lastHaltReason,
	}
}
