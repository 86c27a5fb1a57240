package statusapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guaranteebettor/tradebot/internal/riskstate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	risk    riskstate.Snapshot
	breaker bool
	games   []string
	agents  []AgentHealth
}

func (f *fakeProvider) RiskSnapshot() riskstate.Snapshot { return f.risk }
func (f *fakeProvider) BreakerOpen() bool                { return f.breaker }
func (f *fakeProvider) CrunchTimeGames() []string        { return f.games }
func (f *fakeProvider) AgentHealth() []AgentHealth       { return f.agents }

func TestHealthzReturnsOK(t *testing.T) {
	t.Parallel()
	s := New(0, &fakeProvider{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestStatusReflectsProviderState(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		risk:    riskstate.Snapshot{OpenExposureCents: 500, TradesToday: 3},
		breaker: true,
		games:   []string{"game-1", "game-2"},
		agents:  []AgentHealth{{Name: "brain", Alive: true}, {Name: "sniper", Alive: false}},
	}
	s := New(0, provider, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Risk.OpenExposureCents != 500 || got.Risk.TradesToday != 3 {
		t.Errorf("risk snapshot mismatch: %+v", got.Risk)
	}
	if !got.BreakerOpen {
		t.Error("breaker_open should reflect provider")
	}
	if len(got.CrunchTimeGames) != 2 {
		t.Errorf("crunch_time_games = %v, want 2 entries", got.CrunchTimeGames)
	}
	if len(got.Agents) != 2 || got.Agents[1].Alive {
		t.Errorf("agents mismatch: %+v", got.Agents)
	}
}
