// Package types defines shared data structures used across all packages.
//
// This is the common vocabulary for the pipeline — score events, market
// updates, trade signals, and fill reports. It has no dependencies on
// internal packages, so it can be imported by any layer.
package types

// Sport is a closed set of supported sports tags.
type Sport string

const (
	SportNCAABasketball  Sport = "ncaa_basketball"
	SportPremierLeague   Sport = "premier_league"
	SportChampionsLeague Sport = "champions_league"
)

// Side is a contract side on the exchange.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// FillStatus enumerates the outcomes a placed order can settle into.
type FillStatus string

const (
	FillFilled    FillStatus = "filled"
	FillPartial   FillStatus = "partial"
	FillRejected  FillStatus = "rejected"
	FillCancelled FillStatus = "cancelled"
	FillUnknown   FillStatus = "unknown"
)

// ScoreEvent is an immutable, normalized score update from a sports feed.
// Invariant: TotalScore == HomeScore + AwayScore.
type ScoreEvent struct {
	EventID      string
	Sport        Sport
	GameID       string
	HomeTeam     string
	AwayTeam     string
	HomeScore    int
	AwayScore    int
	TotalScore   int
	GameClock    string
	Period       int
	IsFinal      bool
	ReceivedAtNs int64
	Provider     string
}

// MarketUpdate is an order-book snapshot for one contract ticker.
// Mutable in the Watcher's cache (updated in place); treated as a value
// copy once handed off to the bus.
type MarketUpdate struct {
	MarketTicker string
	YesBid       int
	YesAsk       int
	NoBid        int
	NoAsk        int
	YesVolume    int // size resting at the best YES ask
	Sequence     int64
	ReceivedAtNs int64
}

// TradeSignal is an immutable instruction to buy a contract.
type TradeSignal struct {
	SignalID      string
	MarketTicker  string
	Side          Side
	MaxPriceCents int
	Quantity      int
	GameID        string
	GeneratedAtNs int64
}

// FillReport is an immutable record of an order's outcome.
type FillReport struct {
	SignalID       string
	OrderID        string
	MarketTicker   string
	Side           Side
	FilledQuantity int
	AvgPriceCents  int
	Status         FillStatus
	FilledAtNs     int64
	LatencyNs      int64
}
