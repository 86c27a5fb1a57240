// Package market holds the per-game registries Brain uses to track
// tradeable contracts: threshold (totals) entries and moneyline entries,
// plus the crunch-time gate and the ticker/title parsing helpers that feed
// them.
//
// ThresholdMap and MoneylineMap are owned exclusively by Brain — Brain is
// the only goroutine that ever calls their mutating methods, so unlike
// Watcher's cache or Risk State they need no internal mutex. This mirrors
// the single-owner cache discipline the local order-book mirror in the
// teacher repo this module descends from enforces with a different lock
// strategy (RWMutex there, because several market slots could be read
// concurrently; here, single-goroutine ownership suffices because there is
// exactly one Brain).
package market

import (
	"sort"
	"strconv"
	"strings"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// ThresholdEntry is a single totals contract tracked for a game.
type ThresholdEntry struct {
	TriggerScore     int
	MarketTicker     string
	Side             types.Side // always yes for over-markets
	AlreadyTriggered bool
}

type gameKey struct {
	sport  types.Sport
	gameID string
}

// ThresholdMap is a two-level registry keyed by (sport, game_id). Not safe
// for concurrent use — callers must be the single owning goroutine (Brain).
type ThresholdMap struct {
	entries map[gameKey][]*ThresholdEntry
}

// NewThresholdMap creates an empty threshold registry.
func NewThresholdMap() *ThresholdMap {
	return &ThresholdMap{entries: make(map[gameKey][]*ThresholdEntry)}
}

// RegisterGame installs the entry list for a game, sorted ascending by
// trigger score. Entries whose trigger is already at or below the current
// total are pre-marked triggered so they never fire but remain visible for
// logging.
func (m *ThresholdMap) RegisterGame(sport types.Sport, gameID string, entries []*ThresholdEntry, currentTotal int) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].TriggerScore < entries[j].TriggerScore })
	for _, e := range entries {
		if e.TriggerScore <= currentTotal {
			e.AlreadyTriggered = true
		}
	}
	m.entries[gameKey{sport, gameID}] = entries
}

// UnregisterGame deletes a game's entries, typically on finality.
func (m *ThresholdMap) UnregisterGame(sport types.Sport, gameID string) {
	delete(m.entries, gameKey{sport, gameID})
}

// GetEntries returns the entry list for a game, or nil if not registered.
func (m *ThresholdMap) GetEntries(sport types.Sport, gameID string) []*ThresholdEntry {
	return m.entries[gameKey{sport, gameID}]
}

// IsRegistered reports whether a game has an installed entry list.
func (m *ThresholdMap) IsRegistered(sport types.Sport, gameID string) bool {
	_, ok := m.entries[gameKey{sport, gameID}]
	return ok
}

// LowestUnfired returns the lowest-trigger entry that has not yet fired, and
// whether one exists. Used by the crunch-time check.
func LowestUnfired(entries []*ThresholdEntry) (*ThresholdEntry, bool) {
	for _, e := range entries {
		if !e.AlreadyTriggered {
			return e, true
		}
	}
	return nil, false
}

// BuildThresholdEntries parses a basketball or soccer totals ticker set into
// threshold entries. Each ticker's trigger is parsed from its trailing
// integer segment.
func BuildThresholdEntries(tickers []string) []*ThresholdEntry {
	entries := make([]*ThresholdEntry, 0, len(tickers))
	for _, ticker := range tickers {
		trigger, ok := TriggerFromTicker(ticker)
		if !ok {
			continue
		}
		entries = append(entries, &ThresholdEntry{
			TriggerScore: trigger,
			MarketTicker: ticker,
			Side:         types.SideYes,
		})
	}
	return entries
}

// TriggerFromTicker parses the trigger score from a totals ticker of the
// form SERIES-YYMMMDD<GAMECODE>-N, returning the trailing integer N.
// Malformed tickers return false.
func TriggerFromTicker(ticker string) (int, bool) {
	idx := strings.LastIndex(ticker, "-")
	if idx < 0 || idx == len(ticker)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(ticker[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
