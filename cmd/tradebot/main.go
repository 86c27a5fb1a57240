// Command tradebot is the entry point for the trading pipeline: it loads
// config, wires the five long-lived agents together over the shared bus,
// starts them, and waits for a shutdown signal.
//
// Architecture:
//
//	main.go             — entry point: loads config, wires agents, waits for SIGINT/SIGTERM
//	internal/bus        — bounded channel fan-out between agents
//	internal/oracle     — sports feed fan-in + global score dedup
//	internal/sportsfeed — ESPN / SportsData.io scoreboard adapters
//	internal/watcher    — order-book replica fed by the exchange WebSocket
//	internal/brain      — score-event-driven signal generation (the hot path)
//	internal/market     — threshold/moneyline maps, crunch-time gate, title matching
//	internal/sniper     — signed order placement, breaker-guarded, no retry
//	internal/shield     — fill consumption, risk-state mutation, one-way halt
//	internal/riskstate  — shared risk counters + circuit breaker
//	internal/audit      — append-only fill-report trail
//	internal/statusapi  — read-only /healthz + /status
//	internal/exchange   — signed REST client
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/guaranteebettor/tradebot/internal/audit"
	"github.com/guaranteebettor/tradebot/internal/brain"
	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/config"
	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/internal/market"
	"github.com/guaranteebettor/tradebot/internal/oracle"
	"github.com/guaranteebettor/tradebot/internal/riskstate"
	"github.com/guaranteebettor/tradebot/internal/shield"
	"github.com/guaranteebettor/tradebot/internal/sniper"
	"github.com/guaranteebettor/tradebot/internal/sportsfeed"
	"github.com/guaranteebettor/tradebot/internal/statusapi"
	"github.com/guaranteebettor/tradebot/internal/watcher"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("GB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	auth, err := exchange.NewAuth(cfg.Exchange.AccessKeyID, cfg.Exchange.PrivateKeyPath)
	if err != nil {
		logger.Error("failed to load exchange credentials", "error", err)
		os.Exit(1)
	}

	b := bus.New(logger)
	restClient := exchange.NewClient(cfg.Exchange.BaseURL, auth, logger)
	watch := watcher.New(b, cfg.Exchange.WSURL, auth, logger)
	gate := market.NewCrunchTimeGate(logger)
	risk := riskstate.New(logger)
	breaker := riskstate.NewCircuitBreaker("sniper", 3, logger)

	feeds := buildFeeds(cfg.Sports, gate, logger)

	params := brain.DefaultEdgeParams()
	params.MinEdgeCents = cfg.Trading.MinEdgeCents
	params.MaxSlippageCents = cfg.Trading.MaxSlippageCents
	params.MaxSpendCents = cfg.Trading.MaxSpendPerTradeCents
	params.MaxQuantity = cfg.Trading.MaxQuantity

	auditLog, err := audit.Open(cfg.Audit.DataDir)
	if err != nil {
		logger.Error("failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer auditLog.Close()

	orc := oracle.New(b, feeds, logger)
	br := brain.New(b, watch, restClient, risk, gate, params, brain.DefaultSeriesTickers(), logger)
	snp := sniper.New(b, restClient, breaker, logger)
	shd := shield.New(b, risk, auditLog, cfg.Risk.MaxDailyLossCents, cfg.Risk.MaxOpenExposureCents, cfg.Risk.MaxTradesPerGame, logger)

	ctx, cancel := context.WithCancel(context.Background())

	if err := restClient.Startup(ctx); err != nil {
		logger.Error("failed to warm up exchange client", "error", err)
		os.Exit(1)
	}
	if err := orc.Startup(ctx); err != nil {
		logger.Error("failed to start sports feeds", "error", err)
		os.Exit(1)
	}

	agents := &agentRegistry{}

	var wg sync.WaitGroup
	runAgent := func(name string, run func(context.Context)) {
		agents.set(name, true)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer agents.set(name, false)
			logger.Info("agent starting", "agent", name)
			run(ctx)
			logger.Info("agent stopped", "agent", name)
		}()
	}

	runAgent("watcher", watch.Run)
	runAgent("oracle", orc.Run)
	runAgent("brain", br.Run)
	runAgent("sniper", snp.Run)
	runAgent("shield", shd.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		restClient.RunKeepalive(ctx, time.Duration(cfg.Exchange.KeepaliveIntervalS*float64(time.Second)))
	}()

	var statusSrv *statusapi.Server
	if cfg.Status.Enabled {
		statusSrv = statusapi.New(cfg.Status.Port, &statusProvider{risk: risk, breaker: breaker, gate: gate, agents: agents}, logger)
		go func() {
			if err := statusSrv.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Status.Port))
	}

	logger.Info("tradebot started",
		"min_edge_cents", cfg.Trading.MinEdgeCents,
		"max_daily_loss_cents", cfg.Risk.MaxDailyLossCents,
		"max_open_exposure_cents", cfg.Risk.MaxOpenExposureCents,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if statusSrv != nil {
		if err := statusSrv.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}

	orc.Shutdown()
	cancel()
	wg.Wait()
}

// agentRegistry tracks whether each long-lived agent goroutine is currently
// running, for the status surface's per-agent liveness field.
type agentRegistry struct {
	mu    sync.Mutex
	alive map[string]bool
	order []string
}

func (r *agentRegistry) set(name string, alive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alive == nil {
		r.alive = make(map[string]bool)
	}
	if _, seen := r.alive[name]; !seen {
		r.order = append(r.order, name)
	}
	r.alive[name] = alive
}

func (r *agentRegistry) snapshot() []statusapi.AgentHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	health := make([]statusapi.AgentHealth, 0, len(r.order))
	for _, name := range r.order {
		health = append(health, statusapi.AgentHealth{Name: name, Alive: r.alive[name]})
	}
	return health
}

// statusProvider adapts the live agent state into statusapi.Provider.
type statusProvider struct {
	risk    *riskstate.State
	breaker *riskstate.CircuitBreaker
	gate    *market.CrunchTimeGate
	agents  *agentRegistry
}

func (p *statusProvider) RiskSnapshot() riskstate.Snapshot     { return p.risk.Snapshot() }
func (p *statusProvider) BreakerOpen() bool                    { return p.breaker.IsOpen() }
func (p *statusProvider) CrunchTimeGames() []string            { return p.gate.ActiveGames() }
func (p *statusProvider) AgentHealth() []statusapi.AgentHealth { return p.agents.snapshot() }

// buildFeeds constructs one ESPN client and one SportsData.io client per
// supported sport. OpticOdds is intentionally left unwired: it is a
// documented stub with no live schema to poll.
func buildFeeds(cfg config.SportsConfig, gate *market.CrunchTimeGate, logger *slog.Logger) []sportsfeed.Client {
	fastPoll := time.Duration(cfg.PollIntervalS * float64(time.Second))
	sports := []types.Sport{types.SportNCAABasketball, types.SportPremierLeague, types.SportChampionsLeague}

	var feeds []sportsfeed.Client
	for _, sport := range sports {
		if espnClient, err := sportsfeed.NewESPNClient(sport, fastPoll, gate, logger); err != nil {
			logger.Error("espn client unavailable", "sport", sport, "error", err)
		} else {
			feeds = append(feeds, espnClient)
		}

		apiKey, baseURL := cfg.SportsDataAPIKeyNCAA, cfg.SportsDataBaseURLNCAA
		if sport != types.SportNCAABasketball {
			apiKey, baseURL = cfg.SportsDataAPIKeySoccer, cfg.SportsDataBaseURLSoccer
		}
		if sdClient, err := sportsfeed.NewSportsDataIOClient(sport, apiKey, baseURL, fastPoll, gate, logger); err != nil {
			logger.Error("sportsdata.io client unavailable", "sport", sport, "error", err)
		} else {
			feeds = append(feeds, sdClient)
		}
	}
	return feeds
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
