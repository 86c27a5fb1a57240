// Package sniper consumes trade signals and places signed limit orders
// against the exchange, guarded by a circuit breaker. No retry: latency is
// paramount and a duplicate fill must be impossible.
package sniper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// clientOrderIDPrefix marks orders placed by this project for idempotency
// and operator triage on the exchange side.
const clientOrderIDPrefix = "gb-"

// orderClient is the subset of *exchange.Client Sniper needs.
type orderClient interface {
	PlaceOrder(ctx context.Context, ticker string, side types.Side, quantity, limitPriceCents int, clientOrderID string) (*exchange.OrderResult, error)
}

// Sniper reads trade signals off the bus and forwards them to the exchange.
type Sniper struct {
	bus     *bus.Bus
	rest    orderClient
	breaker *riskstate.CircuitBreaker
	logger  *slog.Logger
}

// New builds a Sniper guarded by breaker.
func New(b *bus.Bus, rest orderClient, breaker *riskstate.CircuitBreaker, logger *slog.Logger) *Sniper {
	return &Sniper{
		bus:     b,
		rest:    rest,
		breaker: breaker,
		logger:  logger.With("component", "sniper"),
	}
}

// Run consumes trade signals until ctx is cancelled.
func (s *Sniper) Run(ctx context.Context) {
	s.logger.Info("sniper agent running")
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-s.bus.TradeSignals():
			if !ok {
				return
			}
			s.execute(ctx, sig)
		}
	}
}

func (s *Sniper) execute(ctx context.Context, sig types.TradeSignal) {
	if s.breaker.IsOpen() {
		s.logger.Error("circuit breaker open — dropping signal", "signal_id", sig.SignalID)
		s.publishFill(sig, "", types.FillRejected, 0, 0)
		return
	}

	clientOrderID := fmt.Sprintf("%s%s", clientOrderIDPrefix, shortID(sig.SignalID))
	result, err := s.rest.PlaceOrder(ctx, sig.MarketTicker, sig.Side, sig.Quantity, sig.MaxPriceCents, clientOrderID)
	if err != nil {
		s.breaker.RecordFailure(err.Error())
		s.logger.Error("order failed", "ticker", sig.MarketTicker, "error", err)
		s.publishFill(sig, "", types.FillRejected, 0, 0)
		return
	}
	s.breaker.RecordSuccess()

	avgPrice := result.AvgPriceCents
	if avgPrice == 0 {
		avgPrice = sig.MaxPriceCents
	}
	status := fillStatusFromExchange(result.Status)

	s.logger.Info("fill",
		"signal_id", sig.SignalID, "order_id", result.OrderID, "status", result.Status,
		"filled", result.FilledQuantity, "price", avgPrice)
	s.publishFill(sig, result.OrderID, status, result.FilledQuantity, avgPrice)
}

func (s *Sniper) publishFill(sig types.TradeSignal, orderID string, status types.FillStatus, filledQty, avgPrice int) {
	filledAt := time.Now().UnixNano()
	report := types.FillReport{
		SignalID:       sig.SignalID,
		OrderID:        orderID,
		MarketTicker:   sig.MarketTicker,
		Side:           sig.Side,
		FilledQuantity: filledQty,
		AvgPriceCents:  avgPrice,
		Status:         status,
		FilledAtNs:     filledAt,
		LatencyNs:      filledAt - sig.GeneratedAtNs,
	}
	s.bus.PublishFillReport(report)
	s.logger.Info("signal to fill latency",
		"signal_id", sig.SignalID, "ticker", sig.MarketTicker,
		"latency_ms", float64(report.LatencyNs)/1e6)
}

// fillStatusFromExchange maps the exchange's free-form status string onto
// the closed FillStatus set; anything unrecognized becomes FillUnknown.
func fillStatusFromExchange(status string) types.FillStatus {
	switch status {
	case "filled":
		return types.FillFilled
	case "partial":
		return types.FillPartial
	case "rejected":
		return types.FillRejected
	case "cancelled", "canceled":
		return types.FillCancelled
	default:
		return types.FillUnknown
	}
}

// shortID returns the first 8 characters of id, matching the reference
// deployment's client_order_id truncation.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// compile-time interface check against the concrete collaborator wired in
// cmd/tradebot.
var _ orderClient = (*exchange.Client)(nil)
