package market

import (
	"log/slog"
	"sync"
)

// CrunchTimeGate is a shared set of game ids with elevated polling cadence.
// Written by Brain, read by the sports feed clients, so unlike the
// single-owner ThresholdMap and MoneylineMap it needs a mutex.
type CrunchTimeGate struct {
	mu     sync.RWMutex
	active map[string]bool
	logger *slog.Logger
}

// NewCrunchTimeGate creates an empty gate.
func NewCrunchTimeGate(logger *slog.Logger) *CrunchTimeGate {
	return &CrunchTimeGate{
		active: make(map[string]bool),
		logger: logger.With("component", "crunch_time_gate"),
	}
}

// Activate marks a game as crunch-time active, logging on state change.
func (g *CrunchTimeGate) Activate(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[gameID] {
		return
	}
	g.active[gameID] = true
	g.logger.Info("crunch time activated", "game_id", gameID)
}

// Deactivate clears a game's crunch-time flag, logging on state change.
func (g *CrunchTimeGate) Deactivate(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active[gameID] {
		return
	}
	delete(g.active, gameID)
	g.logger.Info("crunch time deactivated", "game_id", gameID)
}

// IsActive reports whether a specific game is crunch-time active.
func (g *CrunchTimeGate) IsActive(gameID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active[gameID]
}

// AnyActive reports whether any game is crunch-time active. Feed clients
// size their poll sleep off this.
func (g *CrunchTimeGate) AnyActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.active) > 0
}

// ActiveGames returns the current set of crunch-time active game ids, for
// the status surface.
func (g *CrunchTimeGate) ActiveGames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	games := make([]string, 0, len(g.active))
	for id := range g.active {
		games = append(games, id)
	}
	return games
}
