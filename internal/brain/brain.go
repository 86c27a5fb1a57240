package brain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/internal/market"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/internal/watcher"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// registrationRetryInterval is how long Brain waits before retrying a
// failed game registration, forcing a fresh market-list fetch.
const registrationRetryInterval = 60 * time.Second

// crunchTimeAskThreshold is the lowest-unfired-threshold YES ask, in cents,
// at or above which a game is considered close enough to activate fast polling.
const crunchTimeAskThreshold = 60

// watcherCache is the subset of *watcher.Watcher Brain depends on, narrowed
// to ease testing with a fake.
type watcherCache interface {
	Latest(ticker string) (types.MarketUpdate, bool)
	Subscribe(tickers []string)
}

// exchangeClient is the subset of *exchange.Client Brain depends on.
type exchangeClient interface {
	GetMarkets(ctx context.Context, seriesTicker string, limit int) ([]exchange.Market, error)
	GetMarket(ctx context.Context, ticker string) (*exchange.Market, error)
}

// Brain is the sole consumer of the bus's game-events channel. It is
// single-threaded by construction: every method below runs on the one
// goroutine that calls Run, so the threshold/moneyline maps and the
// registration bookkeeping need no mutex of their own.
type Brain struct {
	bus     *bus.Bus
	watch   watcherCache
	rest    exchangeClient
	risk    *riskstate.State
	gate    *market.CrunchTimeGate
	params  EdgeParams
	series  map[types.Sport]SeriesTickers
	logger  *slog.Logger

	thresholds *market.ThresholdMap
	moneylines *market.MoneylineMap

	gameState       map[string]registrationState
	gameFailedAt    map[string]time.Time
	mlGameState     map[string]registrationState
	mlGameFailedAt  map[string]time.Time
	prevScores      map[string][2]int

	todaysMarketsCache   map[types.Sport][]exchange.Market
	todaysMLMarketsCache map[types.Sport][]exchange.Market
	marketsFetchedDate   string

	nowFunc func() time.Time
}

// New builds a Brain. watch, rest, risk, and gate are read-only capability
// handles passed in by the caller (see package cmd/tradebot's wiring
// order) — Brain never owns any of them.
func New(b *bus.Bus, watch watcherCache, rest exchangeClient, risk *riskstate.State, gate *market.CrunchTimeGate, params EdgeParams, series map[types.Sport]SeriesTickers, logger *slog.Logger) *Brain {
	return &Brain{
		bus:                  b,
		watch:                watch,
		rest:                 rest,
		risk:                 risk,
		gate:                 gate,
		params:               params,
		series:               series,
		thresholds:           market.NewThresholdMap(),
		moneylines:           market.NewMoneylineMap(),
		gameState:            make(map[string]registrationState),
		gameFailedAt:         make(map[string]time.Time),
		mlGameState:          make(map[string]registrationState),
		mlGameFailedAt:       make(map[string]time.Time),
		prevScores:           make(map[string][2]int),
		todaysMarketsCache:   make(map[types.Sport][]exchange.Market),
		todaysMLMarketsCache: make(map[types.Sport][]exchange.Market),
		nowFunc:              time.Now,
		logger:               logger.With("component", "brain"),
	}
}

// Run consumes the bus's game-events channel until ctx is cancelled.
func (br *Brain) Run(ctx context.Context) {
	br.logger.Info("brain agent running")
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-br.bus.GameEvents():
			if !ok {
				return
			}
			br.processEvent(ctx, evt)
		}
	}
}

func (br *Brain) processEvent(ctx context.Context, evt types.ScoreEvent) {
	prev := br.prevScores[evt.GameID]
	br.prevScores[evt.GameID] = [2]int{evt.HomeScore, evt.AwayScore}

	if evt.IsFinal {
		br.thresholds.UnregisterGame(evt.Sport, evt.GameID)
		br.moneylines.UnregisterGame(evt.Sport, evt.GameID)
		if br.gate != nil {
			br.gate.Deactivate(evt.GameID)
		}
		delete(br.prevScores, evt.GameID)
		delete(br.gameState, evt.GameID)
		delete(br.mlGameState, evt.GameID)
		return
	}

	br.ensureTotalsRegistration(ctx, evt)
	br.ensureMoneylineRegistration(ctx, evt)

	if br.gameState[evt.GameID] == stateRegistered {
		br.checkCrunchTime(evt)
		br.evaluateThresholds(ctx, evt)
	}
	if br.mlGameState[evt.GameID] == stateRegistered {
		br.checkMoneylineSignal(evt, prev)
	}
}

func (br *Brain) ensureTotalsRegistration(ctx context.Context, evt types.ScoreEvent) {
	state := br.gameState[evt.GameID]
	switch state {
	case stateUnseen:
		br.gameState[evt.GameID] = statePending
		br.registerGame(ctx, evt)
	case stateFailed:
		if br.nowFunc().Sub(br.gameFailedAt[evt.GameID]) >= registrationRetryInterval {
			delete(br.todaysMarketsCache, evt.Sport)
			br.gameState[evt.GameID] = statePending
			br.registerGame(ctx, evt)
		}
	}
}

func (br *Brain) ensureMoneylineRegistration(ctx context.Context, evt types.ScoreEvent) {
	state := br.mlGameState[evt.GameID]
	switch state {
	case stateUnseen:
		br.mlGameState[evt.GameID] = statePending
		br.registerMoneyline(ctx, evt)
	case stateFailed:
		if br.nowFunc().Sub(br.mlGameFailedAt[evt.GameID]) >= registrationRetryInterval {
			delete(br.todaysMLMarketsCache, evt.Sport)
			br.mlGameState[evt.GameID] = statePending
			br.registerMoneyline(ctx, evt)
		}
	}
}

func (br *Brain) registerGame(ctx context.Context, evt types.ScoreEvent) {
	markets, err := br.todaysSeriesMarkets(ctx, evt.Sport, false)
	if err != nil {
		br.logger.Error("failed to fetch markets", "sport", evt.Sport, "error", err)
		br.failGame(evt.GameID)
		return
	}

	gameMarkets := filterMarketsForGame(markets, evt.HomeTeam, evt.AwayTeam)
	if len(gameMarkets) == 0 {
		br.logger.Warn("no markets found for game; exchange may not have listed it yet",
			"game_id", evt.GameID, "home", evt.HomeTeam, "away", evt.AwayTeam)
		br.failGame(evt.GameID)
		return
	}

	tickers := make([]string, len(gameMarkets))
	for i, m := range gameMarkets {
		tickers[i] = m.Ticker
	}
	br.watch.Subscribe(tickers)

	entries := market.BuildThresholdEntries(tickers)
	if len(entries) == 0 {
		br.logger.Warn("no threshold entries built for game", "game_id", evt.GameID)
		br.failGame(evt.GameID)
		return
	}

	br.thresholds.RegisterGame(evt.Sport, evt.GameID, entries, evt.TotalScore)
	br.gameState[evt.GameID] = stateRegistered
	br.logger.Info("registered thresholds for game",
		"game_id", evt.GameID, "count", len(entries), "total", evt.TotalScore)
}

func (br *Brain) registerMoneyline(ctx context.Context, evt types.ScoreEvent) {
	markets, err := br.todaysSeriesMarkets(ctx, evt.Sport, true)
	if err != nil {
		br.logger.Error("failed to fetch moneyline markets", "sport", evt.Sport, "error", err)
		br.failMoneyline(evt.GameID)
		return
	}

	gameMarkets := filterMarketsForGame(markets, evt.HomeTeam, evt.AwayTeam)
	if len(gameMarkets) == 0 {
		br.logger.Warn("no moneyline markets found for game", "game_id", evt.GameID)
		br.failMoneyline(evt.GameID)
		return
	}

	entries := pickMoneylineTickers(gameMarkets, evt.HomeTeam, evt.AwayTeam)
	if len(entries) == 0 {
		br.failMoneyline(evt.GameID)
		return
	}

	tickers := make([]string, len(entries))
	for i, e := range entries {
		tickers[i] = e.MarketTicker
	}
	br.watch.Subscribe(tickers)
	br.moneylines.RegisterGame(evt.Sport, evt.GameID, entries)
	br.mlGameState[evt.GameID] = stateRegistered
}

func (br *Brain) failGame(gameID string) {
	br.gameState[gameID] = stateFailed
	br.gameFailedAt[gameID] = br.nowFunc()
}

func (br *Brain) failMoneyline(gameID string) {
	br.mlGameState[gameID] = stateFailed
	br.mlGameFailedAt[gameID] = br.nowFunc()
}

// todaysSeriesMarkets returns the lazily-cached, date-filtered market
// listing for sport's totals (or moneyline) series, refreshing once per
// calendar day or on cache invalidation.
func (br *Brain) todaysSeriesMarkets(ctx context.Context, sport types.Sport, moneyline bool) ([]exchange.Market, error) {
	today := br.nowFunc().UTC().Format("2006-01-02")
	cache := br.todaysMarketsCache
	if moneyline {
		cache = br.todaysMLMarketsCache
	}

	if br.marketsFetchedDate != today {
		br.todaysMarketsCache = make(map[types.Sport][]exchange.Market)
		br.todaysMLMarketsCache = make(map[types.Sport][]exchange.Market)
		br.marketsFetchedDate = today
		cache = br.todaysMarketsCache
		if moneyline {
			cache = br.todaysMLMarketsCache
		}
	}

	if cached, ok := cache[sport]; ok {
		return cached, nil
	}

	series, ok := br.series[sport]
	if !ok {
		return nil, fmt.Errorf("no series tickers configured for sport %s", sport)
	}
	seriesTicker := series.Totals
	if moneyline {
		seriesTicker = series.Moneyline
	}
	if seriesTicker == "" {
		return nil, fmt.Errorf("no %s series ticker configured for sport %s", sideLabel(moneyline), sport)
	}

	all, err := br.rest.GetMarkets(ctx, seriesTicker, 1000)
	if err != nil {
		return nil, err
	}
	datePrefix := br.nowFunc().UTC().Format("06Jan02")
	filtered := todaysMarkets(all, toUpperASCII(datePrefix))

	if moneyline {
		br.todaysMLMarketsCache[sport] = filtered
	} else {
		br.todaysMarketsCache[sport] = filtered
	}
	br.logger.Info("fetched today's markets", "sport", sport, "series", seriesTicker,
		"matched", len(filtered), "total", len(all))
	return filtered, nil
}

func sideLabel(moneyline bool) string {
	if moneyline {
		return "moneyline"
	}
	return "totals"
}

func (br *Brain) checkCrunchTime(evt types.ScoreEvent) {
	if br.gate == nil || br.gate.IsActive(evt.GameID) {
		return
	}
	entries := br.thresholds.GetEntries(evt.Sport, evt.GameID)
	lowest, ok := market.LowestUnfired(entries)
	if !ok {
		return
	}
	upd, ok := br.watch.Latest(lowest.MarketTicker)
	if !ok {
		return
	}
	if upd.YesAsk >= crunchTimeAskThreshold {
		br.gate.Activate(evt.GameID)
		br.logger.Info("crunch time activated",
			"game_id", evt.GameID, "yes_ask", upd.YesAsk, "ticker", lowest.MarketTicker,
			"total", evt.TotalScore, "trigger", lowest.TriggerScore)
	}
}

func (br *Brain) evaluateThresholds(ctx context.Context, evt types.ScoreEvent) {
	entries := br.thresholds.GetEntries(evt.Sport, evt.GameID)
	for _, entry := range entries {
		if entry.AlreadyTriggered {
			continue
		}
		if evt.TotalScore < entry.TriggerScore {
			continue
		}
		br.evaluateAndSignal(ctx, evt, entry)
	}
}

func (br *Brain) evaluateAndSignal(ctx context.Context, evt types.ScoreEvent, entry *market.ThresholdEntry) {
	entry.AlreadyTriggered = true // set first: no duplicate signal even if evaluation fails below

	if br.risk != nil && br.risk.IsHalted() {
		br.logger.Warn("risk halted — skipping signal", "ticker", entry.MarketTicker)
		return
	}

	upd, ok := br.watch.Latest(entry.MarketTicker)
	if !ok {
		upd, ok = br.fetchMarketViaREST(ctx, entry.MarketTicker)
	}
	if !ok {
		br.logger.Warn("no market data — signal skipped", "ticker", entry.MarketTicker)
		return
	}

	yesAsk := upd.YesAsk
	if !br.params.HasEdge(yesAsk) {
		br.logger.Info("no edge — skipping", "ticker", entry.MarketTicker, "yes_ask", yesAsk)
		return
	}

	limitPrice := br.params.LimitPrice(yesAsk)
	quantity := br.params.Quantity(yesAsk)
	now := time.Now().UnixNano()

	signal := types.TradeSignal{
		SignalID:      uuid.NewString(),
		MarketTicker:  entry.MarketTicker,
		Side:          entry.Side,
		MaxPriceCents: limitPrice,
		Quantity:      quantity,
		GameID:        evt.GameID,
		GeneratedAtNs: now,
	}
	br.bus.PublishTradeSignal(signal)
	br.logger.Info("signal",
		"game_id", evt.GameID, "total", evt.TotalScore, "trigger", entry.TriggerScore,
		"ticker", entry.MarketTicker, "yes_ask", yesAsk, "limit", limitPrice,
		"qty", quantity, "signal_id", signal.SignalID)
}

// fetchMarketViaREST is Brain's one-shot fallback when the Watcher cache has
// no entry yet. An empty book (the halted-market default) is treated as "no
// data" rather than injected into the cache, since only the Watcher owns it.
func (br *Brain) fetchMarketViaREST(ctx context.Context, ticker string) (types.MarketUpdate, bool) {
	m, err := br.rest.GetMarket(ctx, ticker)
	if err != nil {
		br.logger.Warn("rest fallback failed", "ticker", ticker, "error", err)
		return types.MarketUpdate{}, false
	}
	if m.YesAsk == 100 && m.YesBid == 0 {
		br.logger.Info("rest fallback got empty book — market likely halted", "ticker", ticker)
		return types.MarketUpdate{}, false
	}
	upd := types.MarketUpdate{
		MarketTicker: ticker,
		YesBid:       m.YesBid,
		YesAsk:       m.YesAsk,
		NoBid:        m.NoBid,
		NoAsk:        m.NoAsk,
		ReceivedAtNs: time.Now().UnixNano(),
	}
	br.logger.Info("rest fallback ok", "ticker", ticker, "yes_ask", m.YesAsk)
	return upd, true
}

func (br *Brain) checkMoneylineSignal(evt types.ScoreEvent, prev [2]int) {
	if br.risk != nil && br.risk.IsHalted() {
		return
	}

	homeScored := evt.HomeScore > prev[0]
	awayScored := evt.AwayScore > prev[1]
	lead := evt.HomeScore - evt.AwayScore
	now := time.Now().UnixNano()

	entries := br.moneylines.GetEntries(evt.Sport, evt.GameID)
	for _, entry := range entries {
		if entry.OnCooldown(now) {
			continue
		}

		var margin int
		switch entry.TeamSide {
		case market.TeamHome:
			if !homeScored || lead <= 0 {
				continue
			}
			margin = lead
		case market.TeamAway:
			if !awayScored || lead >= 0 {
				continue
			}
			margin = -lead
		}

		winProb := EstimateWinProb(evt.Sport, margin, evt.Period)
		if winProb == 0 {
			continue
		}

		upd, ok := br.watch.Latest(entry.MarketTicker)
		if !ok {
			continue
		}
		ask := upd.YesAsk
		if entry.TradeSide == types.SideNo {
			ask = upd.NoAsk
		}
		if !br.params.HasMoneylineEdge(ask, winProb) {
			continue
		}

		entry.MarkSignaled(now)
		quantity := br.params.Quantity(ask)
		signal := types.TradeSignal{
			SignalID:      uuid.NewString(),
			MarketTicker:  entry.MarketTicker,
			Side:          entry.TradeSide,
			MaxPriceCents: br.params.MoneylineLimitPrice(ask),
			Quantity:      quantity,
			GameID:        evt.GameID,
			GeneratedAtNs: now,
		}
		br.bus.PublishTradeSignal(signal)
		br.logger.Info("moneyline signal",
			"game_id", evt.GameID, "team_side", entry.TeamSide, "margin", margin,
			"period", evt.Period, "ticker", entry.MarketTicker, "win_prob", winProb,
			"ask", ask, "signal_id", signal.SignalID)
	}
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// compile-time interface checks against the concrete collaborators wired in
// cmd/tradebot.
var (
	_ watcherCache   = (*watcher.Watcher)(nil)
	_ exchangeClient = (*exchange.Client)(nil)
)
