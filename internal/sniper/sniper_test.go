package sniper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOrderClient struct {
	result *exchange.OrderResult
	err    error
}

func (f *fakeOrderClient) PlaceOrder(ctx context.Context, ticker string, side types.Side, quantity, limitPriceCents int, clientOrderID string) (*exchange.OrderResult, error) {
	return f.result, f.err
}

func TestSniperPublishesFillOnSuccess(t *testing.T) {
	t.Parallel()
	rest := &fakeOrderClient{result: &exchange.OrderResult{
		OrderID: "ord-1", Status: "filled", FilledQuantity: 10, AvgPriceCents: 52,
	}}
	b := bus.New(testLogger())
	breaker := riskstate.NewCircuitBreaker("test", 3, testLogger())
	s := New(b, rest, breaker, testLogger())

	sig := types.TradeSignal{SignalID: "12345678-abcd", MarketTicker: "T-1", Side: types.SideYes, Quantity: 10, MaxPriceCents: 52}
	s.execute(context.Background(), sig)

	select {
	case fr := <-b.FillReports():
		if fr.Status != types.FillFilled || fr.OrderID != "ord-1" || fr.AvgPriceCents != 52 {
			t.Errorf("unexpected fill report: %+v", fr)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a fill report")
	}
	if breaker.IsOpen() {
		t.Error("breaker should remain closed after a success")
	}
}

func TestSniperPublishesRejectedFillOnOrderError(t *testing.T) {
	t.Parallel()
	rest := &fakeOrderClient{err: errors.New("exchange down")}
	b := bus.New(testLogger())
	breaker := riskstate.NewCircuitBreaker("test", 3, testLogger())
	s := New(b, rest, breaker, testLogger())

	sig := types.TradeSignal{SignalID: "sig-1", MarketTicker: "T-1", Side: types.SideYes, Quantity: 5, MaxPriceCents: 40}
	s.execute(context.Background(), sig)

	select {
	case fr := <-b.FillReports():
		if fr.Status != types.FillRejected || fr.OrderID != "" {
			t.Errorf("expected rejected fill with empty order id, got %+v", fr)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a fill report")
	}
}

func TestSniperDropsSignalWhenBreakerOpen(t *testing.T) {
	t.Parallel()
	rest := &fakeOrderClient{result: &exchange.OrderResult{OrderID: "should-not-be-called"}}
	b := bus.New(testLogger())
	breaker := riskstate.NewCircuitBreaker("test", 1, testLogger())
	breaker.RecordFailure("seed")

	s := New(b, rest, breaker, testLogger())
	sig := types.TradeSignal{SignalID: "sig-2", MarketTicker: "T-1", Quantity: 1, MaxPriceCents: 10}
	s.execute(context.Background(), sig)

	select {
	case fr := <-b.FillReports():
		if fr.Status != types.FillRejected {
			t.Errorf("expected rejected fill while breaker open, got %+v", fr)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a fill report")
	}
}

func TestSniperFallsBackToLimitPriceWhenAvgPriceMissing(t *testing.T) {
	t.Parallel()
	rest := &fakeOrderClient{result: &exchange.OrderResult{OrderID: "ord-2", Status: "filled", FilledQuantity: 1}}
	b := bus.New(testLogger())
	breaker := riskstate.NewCircuitBreaker("test", 3, testLogger())
	s := New(b, rest, breaker, testLogger())

	sig := types.TradeSignal{SignalID: "sig-3", MarketTicker: "T-1", Quantity: 1, MaxPriceCents: 77}
	s.execute(context.Background(), sig)

	fr := <-b.FillReports()
	if fr.AvgPriceCents != 77 {
		t.Errorf("avg price = %d, want fallback to max_price_cents 77", fr.AvgPriceCents)
	}
}
