package shield

import (
	"io"
	"log/slog"
	"testing"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuditSink struct {
	reports []types.FillReport
}

func (f *fakeAuditSink) Append(report types.FillReport) error {
	f.reports = append(f.reports, report)
	return nil
}

func TestShieldAppendsEveryFillToAuditRegardlessOfStatus(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	b := bus.New(testLogger())
	sink := &fakeAuditSink{}
	s := New(b, risk, sink, 10000, 50000, 5, testLogger())

	s.processFill(types.FillReport{Status: types.FillRejected, MarketTicker: "T-1"})
	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 1, AvgPriceCents: 10})

	if len(sink.reports) != 2 {
		t.Fatalf("expected both reports appended to audit, got %d", len(sink.reports))
	}
}

func TestShieldIgnoresRejectedAndCancelledFills(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	b := bus.New(testLogger())
	s := New(b, risk, nil, 10000, 50000, 5, testLogger())

	s.processFill(types.FillReport{Status: types.FillRejected, MarketTicker: "T-1", FilledQuantity: 10, AvgPriceCents: 50})
	s.processFill(types.FillReport{Status: types.FillCancelled, MarketTicker: "T-1", FilledQuantity: 10, AvgPriceCents: 50})

	snap := risk.Snapshot()
	if snap.TradesToday != 0 || snap.OpenExposureCents != 0 {
		t.Errorf("expected no risk mutation from non-filled reports, got %+v", snap)
	}
}

func TestShieldAppliesFilledAndPartialFills(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	b := bus.New(testLogger())
	s := New(b, risk, nil, 10000, 50000, 5, testLogger())

	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 10, AvgPriceCents: 50})
	s.processFill(types.FillReport{Status: types.FillPartial, MarketTicker: "T-1", FilledQuantity: 5, AvgPriceCents: 40})

	snap := risk.Snapshot()
	if snap.TradesToday != 2 {
		t.Errorf("trades_today = %d, want 2", snap.TradesToday)
	}
	want := int64(10*50 + 5*40)
	if snap.OpenExposureCents != want {
		t.Errorf("open_exposure_cents = %d, want %d", snap.OpenExposureCents, want)
	}
}

func TestShieldHaltsOnOpenExposureBreach(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	b := bus.New(testLogger())
	s := New(b, risk, nil, 10000, 100, 5, testLogger())

	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 10, AvgPriceCents: 50})

	if !risk.IsHalted() {
		t.Fatal("expected halt once open exposure exceeds the limit")
	}
}

func TestShieldDoesNotReHaltOnceHalted(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	risk.Halt("pre-existing halt")
	b := bus.New(testLogger())
	s := New(b, risk, nil, 10000, 50000, 5, testLogger())

	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 10, AvgPriceCents: 50})

	snap := risk.Snapshot()
	if snap.LastHaltReason != "pre-existing halt" {
		t.Errorf("halt reason should be unchanged, got %q", snap.LastHaltReason)
	}
}

func TestShieldPerGameCapIsWarnOnlyNotHalt(t *testing.T) {
	t.Parallel()
	risk := riskstate.New(testLogger())
	b := bus.New(testLogger())
	s := New(b, risk, nil, 10000, 50000, 1, testLogger())

	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 1, AvgPriceCents: 10})
	s.processFill(types.FillReport{Status: types.FillFilled, MarketTicker: "T-1", FilledQuantity: 1, AvgPriceCents: 10})

	if risk.IsHalted() {
		t.Error("per-game/per-ticker trade cap must not trigger a halt")
	}
}
