// Package bus implements the in-process event bus connecting the five
// pipeline agents: four bounded, typed channels with non-blocking,
// best-effort publish.
//
// Capacities reflect staleness tolerance: if more than 50 score events are
// backlogged, they are already worthless; the trade-signal channel is
// intentionally tiny so Brain stalls rather than queues ahead of a lagging
// Sniper. Modeled on the report/kill-signal channel pattern in the risk
// manager this module descends from: publish is a non-blocking send guarded
// by a select-default, and a full channel logs and drops rather than
// blocking the producer.
package bus

import (
	"log/slog"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

const (
	gameEventsCap   = 50
	marketUpdatesCap = 200
	tradeSignalsCap = 10
	fillReportsCap  = 100
)

// Bus is the shared, bounded event bus. All methods are safe for concurrent
// use by multiple producers and consumers.
type Bus struct {
	gameEvents    chan types.ScoreEvent
	marketUpdates chan types.MarketUpdate
	tradeSignals  chan types.TradeSignal
	fillReports   chan types.FillReport

	logger *slog.Logger
}

// New creates a bus with the spec'd fixed channel capacities.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		gameEvents:    make(chan types.ScoreEvent, gameEventsCap),
		marketUpdates: make(chan types.MarketUpdate, marketUpdatesCap),
		tradeSignals:  make(chan types.TradeSignal, tradeSignalsCap),
		fillReports:   make(chan types.FillReport, fillReportsCap),
		logger:        logger.With("component", "bus"),
	}
}

// PublishGameEvent is a non-blocking best-effort send; drops and warns on overflow.
func (b *Bus) PublishGameEvent(evt types.ScoreEvent) {
	select {
	case b.gameEvents <- evt:
	default:
		b.logger.Warn("game_events channel full, dropping event", "game_id", evt.GameID)
	}
}

// GameEvents returns the consumer-side channel for score events.
func (b *Bus) GameEvents() <-chan types.ScoreEvent { return b.gameEvents }

// PublishMarketUpdate is a non-blocking best-effort send; drops and warns on overflow.
func (b *Bus) PublishMarketUpdate(upd types.MarketUpdate) {
	select {
	case b.marketUpdates <- upd:
	default:
		b.logger.Warn("market_updates channel full, dropping update", "ticker", upd.MarketTicker)
	}
}

// MarketUpdates returns the consumer-side channel for market updates.
func (b *Bus) MarketUpdates() <-chan types.MarketUpdate { return b.marketUpdates }

// PublishTradeSignal is a non-blocking best-effort send. Because this channel
// is the hottest and smallest, a drop here is logged at error level rather
// than warning — a dropped trade signal is a missed trade, not a stale read.
func (b *Bus) PublishTradeSignal(sig types.TradeSignal) {
	select {
	case b.tradeSignals <- sig:
	default:
		b.logger.Error("trade_signals channel full, dropping signal",
			"signal_id", sig.SignalID, "ticker", sig.MarketTicker)
	}
}

// TradeSignals returns the consumer-side channel for trade signals.
func (b *Bus) TradeSignals() <-chan types.TradeSignal { return b.tradeSignals }

// PublishFillReport is a non-blocking best-effort send; drops and warns on overflow.
func (b *Bus) PublishFillReport(fr types.FillReport) {
	select {
	case b.fillReports <- fr:
	default:
		b.logger.Warn("fill_reports channel full, dropping report", "signal_id", fr.SignalID)
	}
}

// FillReports returns the consumer-side channel for fill reports.
func (b *Bus) FillReports() <-chan types.FillReport { return b.fillReports }
