// Package shield consumes fill reports, mutates the shared risk state, and
// trips a one-way halt when a hard limit is breached.
package shield

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// auditSink persists a fill report, fire-and-forget. Implemented by
// *audit.Log; kept as an interface so Shield doesn't depend on the audit
// package's file-based storage directly.
type auditSink interface {
	Append(report types.FillReport) error
}

// Shield is the sole writer of riskstate.State.
type Shield struct {
	bus                  *bus.Bus
	risk                 *riskstate.State
	audit                auditSink
	maxDailyLossCents    int64
	maxOpenExposureCents int64
	maxTradesPerGame     int
	logger               *slog.Logger

	// tradeCount is keyed by market ticker, not game id — the reference
	// deployment conflates the two because a FillReport only carries the
	// ticker; this is preserved and treated as advisory only (see the
	// per-game cap check below).
	tradeCount map[string]int
}

// New builds a Shield enforcing the given limits against risk. Every fill
// report processed is appended to audit, fire-and-forget.
func New(b *bus.Bus, risk *riskstate.State, audit auditSink, maxDailyLossCents, maxOpenExposureCents int64, maxTradesPerGame int, logger *slog.Logger) *Shield {
	return &Shield{
		bus:                  b,
		risk:                 risk,
		audit:                audit,
		maxDailyLossCents:    maxDailyLossCents,
		maxOpenExposureCents: maxOpenExposureCents,
		maxTradesPerGame:     maxTradesPerGame,
		tradeCount:           make(map[string]int),
		logger:               logger.With("component", "shield"),
	}
}

// Run consumes fill reports until ctx is cancelled.
func (s *Shield) Run(ctx context.Context) {
	s.logger.Info("shield agent running",
		"max_daily_loss_cents", s.maxDailyLossCents, "max_open_exposure_cents", s.maxOpenExposureCents)
	for {
		select {
		case <-ctx.Done():
			return
		case report, ok := <-s.bus.FillReports():
			if !ok {
				return
			}
			s.processFill(report)
		}
	}
}

func (s *Shield) processFill(report types.FillReport) {
	if s.audit != nil {
		if err := s.audit.Append(report); err != nil {
			s.logger.Error("failed to append audit record", "signal_id", report.SignalID, "error", err)
		}
	}

	if report.Status != types.FillFilled && report.Status != types.FillPartial {
		return
	}

	s.risk.ApplyFill(report.AvgPriceCents, report.FilledQuantity)
	s.tradeCount[report.MarketTicker]++

	snap := s.risk.Snapshot()
	s.logger.Info("fill processed",
		"ticker", report.MarketTicker, "filled", report.FilledQuantity,
		"cost_cents", report.AvgPriceCents*report.FilledQuantity,
		"open_exposure_cents", snap.OpenExposureCents, "daily_pnl_cents", snap.DailyRealizedPnLCents)

	s.checkLimits(report, snap)
}

func (s *Shield) checkLimits(report types.FillReport, snap riskstate.Snapshot) {
	if snap.Halted {
		return
	}

	if snap.DailyRealizedPnLCents < -s.maxDailyLossCents {
		reason := fmt.Sprintf("daily loss limit breached: %d¢ < -%d¢",
			snap.DailyRealizedPnLCents, s.maxDailyLossCents)
		s.risk.Halt(reason)
		return
	}

	if snap.OpenExposureCents > s.maxOpenExposureCents {
		reason := fmt.Sprintf("open exposure limit breached: %d¢ > %d¢",
			snap.OpenExposureCents, s.maxOpenExposureCents)
		s.risk.Halt(reason)
		return
	}

	// Per-game trade cap: warn only. Brain's already_triggered flags already
	// cap most per-game activity, and this counter is keyed by ticker, not
	// game id, so it is advisory rather than authoritative.
	count := s.tradeCount[report.MarketTicker]
	if count >= s.maxTradesPerGame {
		s.logger.Warn("max trades per game reached",
			"ticker", report.MarketTicker, "count", count, "limit", s.maxTradesPerGame)
	}
}
