package market

import (
	"time"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// signalCooldown is the minimum spacing between two signals on the same
// moneyline entry.
const signalCooldown = 45 * time.Second

// TeamSide identifies which team a moneyline entry trades.
type TeamSide string

const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

// MoneylineEntry is a single moneyline contract tracked for a game.
type MoneylineEntry struct {
	MarketTicker   string
	TeamSide       TeamSide
	TradeSide      types.Side
	lastSignaledNs int64
}

// OnCooldown reports whether a new signal must be suppressed because the
// last one fired less than 45s ago (monotonic nanosecond clock).
func (e *MoneylineEntry) OnCooldown(nowNs int64) bool {
	if e.lastSignaledNs == 0 {
		return false
	}
	return nowNs-e.lastSignaledNs < signalCooldown.Nanoseconds()
}

// MarkSignaled records that a signal just fired for this entry.
func (e *MoneylineEntry) MarkSignaled(nowNs int64) {
	e.lastSignaledNs = nowNs
}

// MoneylineMap is a two-level registry keyed by (sport, game_id), owned
// exclusively by Brain, matching ThresholdMap's single-owner discipline.
type MoneylineMap struct {
	entries map[gameKey][]*MoneylineEntry
}

// NewMoneylineMap creates an empty moneyline registry.
func NewMoneylineMap() *MoneylineMap {
	return &MoneylineMap{entries: make(map[gameKey][]*MoneylineEntry)}
}

// RegisterGame installs the moneyline entry list for a game.
func (m *MoneylineMap) RegisterGame(sport types.Sport, gameID string, entries []*MoneylineEntry) {
	m.entries[gameKey{sport, gameID}] = entries
}

// UnregisterGame deletes a game's moneyline entries.
func (m *MoneylineMap) UnregisterGame(sport types.Sport, gameID string) {
	delete(m.entries, gameKey{sport, gameID})
}

// GetEntries returns the moneyline entries for a game, or nil if unregistered.
func (m *MoneylineMap) GetEntries(sport types.Sport, gameID string) []*MoneylineEntry {
	return m.entries[gameKey{sport, gameID}]
}

// IsRegistered reports whether a game has installed moneyline entries.
func (m *MoneylineMap) IsRegistered(sport types.Sport, gameID string) bool {
	_, ok := m.entries[gameKey{sport, gameID}]
	return ok
}

// BuildMoneylineEntries constructs moneyline entries from a game's home and
// away tickers. An empty awayTicker (or one equal to homeTicker) means a
// single two-sided market and yields a home=yes / away=no pair on that one
// ticker; two distinct tickers yield a yes entry on each. It does no title
// matching: deciding which ticker belongs to which team is the caller's job.
func BuildMoneylineEntries(homeTicker, awayTicker string) []*MoneylineEntry {
	if awayTicker == "" || awayTicker == homeTicker {
		return []*MoneylineEntry{
			{MarketTicker: homeTicker, TeamSide: TeamHome, TradeSide: types.SideYes},
			{MarketTicker: homeTicker, TeamSide: TeamAway, TradeSide: types.SideNo},
		}
	}
	return []*MoneylineEntry{
		{MarketTicker: homeTicker, TeamSide: TeamHome, TradeSide: types.SideYes},
		{MarketTicker: awayTicker, TeamSide: TeamAway, TradeSide: types.SideYes},
	}
}
