package market

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrunchTimeGateActivateDeactivate(t *testing.T) {
	g := NewCrunchTimeGate(testLogger())
	if g.IsActive("g1") || g.AnyActive() {
		t.Fatal("expected empty gate to start inactive")
	}
	g.Activate("g1")
	if !g.IsActive("g1") || !g.AnyActive() {
		t.Fatal("expected g1 active after Activate")
	}
	g.Activate("g1") // idempotent, must not panic or double-log
	g.Deactivate("g1")
	if g.IsActive("g1") || g.AnyActive() {
		t.Fatal("expected g1 inactive after Deactivate")
	}
	g.Deactivate("g1") // idempotent no-op
}

func TestCrunchTimeGateMultipleGames(t *testing.T) {
	g := NewCrunchTimeGate(testLogger())
	g.Activate("g1")
	g.Activate("g2")
	if !g.AnyActive() {
		t.Fatal("expected AnyActive with two games active")
	}
	g.Deactivate("g1")
	if !g.AnyActive() {
		t.Fatal("expected AnyActive still true with g2 active")
	}
	g.Deactivate("g2")
	if g.AnyActive() {
		t.Fatal("expected AnyActive false once all games deactivated")
	}
}
