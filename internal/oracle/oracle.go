// Package oracle fans in one or more sports feed clients and publishes
// deduplicated score events onto the shared bus.
package oracle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/sportsfeed"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

type scoreKey struct {
	gameID string
	home   int
	away   int
}

// Oracle manages a set of sportsfeed.Client instances and fans their output
// into the bus's game_events channel, deduplicating across providers.
//
// Unlike the single-threaded original this is ported from, each feed here
// runs on its own goroutine, so the dedup map is genuinely shared across
// concurrent writers and needs its own lock.
type Oracle struct {
	bus    *bus.Bus
	feeds  []sportsfeed.Client
	logger *slog.Logger

	mu   sync.Mutex
	seen map[scoreKey]bool // every (game_id, home, away) already published

	wg sync.WaitGroup
}

// New builds an Oracle over feeds, publishing onto b.
func New(b *bus.Bus, feeds []sportsfeed.Client, logger *slog.Logger) *Oracle {
	return &Oracle{
		bus:    b,
		feeds:  feeds,
		seen:   make(map[scoreKey]bool),
		logger: logger.With("component", "oracle"),
	}
}

// Startup prepares every feed client. If one fails to start, the others are
// still attempted; the error is returned once all have been tried.
func (o *Oracle) Startup(ctx context.Context) error {
	var firstErr error
	names := make([]string, 0, len(o.feeds))
	for _, feed := range o.feeds {
		if err := feed.Startup(ctx); err != nil {
			o.logger.Error("feed startup failed", "feed", feed.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		names = append(names, feed.Name())
	}
	o.logger.Info("oracle started", "feed_count", len(names), "feeds", names)
	return firstErr
}

// Shutdown releases every feed client. Best-effort: errors are logged, not
// returned.
func (o *Oracle) Shutdown() {
	for _, feed := range o.feeds {
		if err := feed.Shutdown(); err != nil {
			o.logger.Warn("feed shutdown error", "feed", feed.Name(), "error", err)
		}
	}
}

// Run launches one goroutine per feed and blocks until ctx is cancelled and
// every feed goroutine has returned. A single feed dying does not bring down
// the others.
func (o *Oracle) Run(ctx context.Context) {
	for _, feed := range o.feeds {
		o.wg.Add(1)
		go o.runFeed(ctx, feed)
	}
	o.wg.Wait()
}

func (o *Oracle) runFeed(ctx context.Context, feed sportsfeed.Client) {
	defer o.wg.Done()
	o.logger.Info("oracle starting feed", "feed", feed.Name())
	for evt := range feed.Stream(ctx) {
		o.maybePublish(evt)
	}
}

// maybePublish drops evt if its (game_id, home, away) triple has already
// been published by any feed, otherwise records it and publishes.
func (o *Oracle) maybePublish(evt types.ScoreEvent) {
	key := scoreKey{gameID: evt.GameID, home: evt.HomeScore, away: evt.AwayScore}

	o.mu.Lock()
	if o.seen[key] {
		o.mu.Unlock()
		return
	}
	o.seen[key] = true
	o.mu.Unlock()

	o.bus.PublishGameEvent(evt)
	o.logger.Debug("oracle published",
		"game_id", evt.GameID, "sport", evt.Sport,
		"home_score", evt.HomeScore, "away_score", evt.AwayScore,
		"total_score", evt.TotalScore, "provider", evt.Provider)
}
