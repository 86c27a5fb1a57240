package market

import (
	"testing"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

func TestTriggerFromTicker(t *testing.T) {
	cases := []struct {
		ticker  string
		trigger int
		ok      bool
	}{
		{"NCAAMBB-25NOV14DUKEUNC-145", 145, true},
		{"SOCCER-25NOV14ARSCHE-3", 3, true},
		{"MALFORMED", 0, false},
		{"TRAILING-DASH-", 0, false},
		{"NCAAMBB-25NOV14DUKEUNC-abc", 0, false},
	}
	for _, c := range cases {
		trigger, ok := TriggerFromTicker(c.ticker)
		if ok != c.ok || trigger != c.trigger {
			t.Errorf("TriggerFromTicker(%q) = (%d, %v), want (%d, %v)", c.ticker, trigger, ok, c.trigger, c.ok)
		}
	}
}

func TestBuildThresholdEntriesSkipsMalformed(t *testing.T) {
	tickers := []string{"A-1-150", "B-NOTANUMBER", "C-1-160"}
	entries := BuildThresholdEntries(tickers)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestRegisterGamePreMarksTriggeredEntries(t *testing.T) {
	m := NewThresholdMap()
	entries := []*ThresholdEntry{
		{TriggerScore: 140, MarketTicker: "t140"},
		{TriggerScore: 150, MarketTicker: "t150"},
		{TriggerScore: 160, MarketTicker: "t160"},
	}
	m.RegisterGame(types.SportNCAABasketball, "game1", entries, 151)

	got := m.GetEntries(types.SportNCAABasketball, "game1")
	if !got[0].AlreadyTriggered || !got[1].AlreadyTriggered {
		t.Fatal("entries at or below current total must be pre-marked triggered")
	}
	if got[2].AlreadyTriggered {
		t.Fatal("entry above current total must not be pre-marked triggered")
	}
}

func TestRegisterGameSortsAscending(t *testing.T) {
	m := NewThresholdMap()
	entries := []*ThresholdEntry{
		{TriggerScore: 160, MarketTicker: "t160"},
		{TriggerScore: 140, MarketTicker: "t140"},
		{TriggerScore: 150, MarketTicker: "t150"},
	}
	m.RegisterGame(types.SportNCAABasketball, "game1", entries, 0)
	got := m.GetEntries(types.SportNCAABasketball, "game1")
	for i := 1; i < len(got); i++ {
		if got[i-1].TriggerScore > got[i].TriggerScore {
			t.Fatalf("entries not sorted ascending: %v", got)
		}
	}
}

func TestLowestUnfired(t *testing.T) {
	entries := []*ThresholdEntry{
		{TriggerScore: 140, AlreadyTriggered: true},
		{TriggerScore: 150, AlreadyTriggered: false},
		{TriggerScore: 160, AlreadyTriggered: false},
	}
	e, ok := LowestUnfired(entries)
	if !ok || e.TriggerScore != 150 {
		t.Fatalf("got %+v, want trigger 150", e)
	}

	allFired := []*ThresholdEntry{{TriggerScore: 140, AlreadyTriggered: true}}
	if _, ok := LowestUnfired(allFired); ok {
		t.Fatal("expected no unfired entry")
	}
}

func TestUnregisterGame(t *testing.T) {
	m := NewThresholdMap()
	m.RegisterGame(types.SportNCAABasketball, "game1", nil, 0)
	if !m.IsRegistered(types.SportNCAABasketball, "game1") {
		t.Fatal("expected registered")
	}
	m.UnregisterGame(types.SportNCAABasketball, "game1")
	if m.IsRegistered(types.SportNCAABasketball, "game1") {
		t.Fatal("expected unregistered after UnregisterGame")
	}
}
