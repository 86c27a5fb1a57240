package sportsfeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/guaranteebettor/tradebot/internal/market"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// espnScoreboardPaths maps each supported sport to ESPN's public scoreboard
// endpoint for that league.
var espnScoreboardPaths = map[types.Sport]string{
	types.SportNCAABasketball:  "/basketball/mens-college-basketball/scoreboard",
	types.SportPremierLeague:   "/soccer/eng.1/scoreboard",
	types.SportChampionsLeague: "/soccer/uefa.champions/scoreboard",
}

// ESPNClient polls ESPN's public (undocumented, unauthenticated) scoreboard
// JSON endpoints.
type ESPNClient struct {
	sport             types.Sport
	path              string
	fastPollInterval  time.Duration
	gate              *market.CrunchTimeGate
	http              *resty.Client
	logger            *slog.Logger

	mu         sync.Mutex
	lastScores map[string][2]int
}

// NewESPNClient builds an ESPN adapter for sport, gated by the shared
// crunch-time gate.
func NewESPNClient(sport types.Sport, fastPollInterval time.Duration, gate *market.CrunchTimeGate, logger *slog.Logger) (*ESPNClient, error) {
	path, ok := espnScoreboardPaths[sport]
	if !ok {
		return nil, fmt.Errorf("espn: unsupported sport %s", sport)
	}
	return &ESPNClient{
		sport:            sport,
		path:             path,
		fastPollInterval: fastPollInterval,
		gate:             gate,
		lastScores:       make(map[string][2]int),
		logger:           logger.With("component", "espn_client", "sport", sport),
	}, nil
}

func (c *ESPNClient) Name() string { return fmt.Sprintf("espn:%s", c.sport) }

func (c *ESPNClient) Startup(ctx context.Context) error {
	c.http = resty.New().
		SetBaseURL("https://site.api.espn.com/apis/site/v2/sports").
		SetTimeout(4 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	return nil
}

func (c *ESPNClient) Shutdown() error { return nil }

func (c *ESPNClient) Stream(ctx context.Context) <-chan types.ScoreEvent {
	out := make(chan types.ScoreEvent, 16)
	go c.pollLoop(ctx, out)
	return out
}

func (c *ESPNClient) pollLoop(ctx context.Context, out chan<- types.ScoreEvent) {
	defer close(out)
	consecutiveErrors := 0
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()

		events, err := c.fetchScoreboard(ctx)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors == 1 || consecutiveErrors%100 == 0 {
				c.logger.Warn("espn poll error", "count", consecutiveErrors, "error", err)
			}
		} else {
			consecutiveErrors = 0
			for _, evt := range events {
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}

		interval := slowPollInterval
		if c.gate.AnyActive() {
			interval = c.fastPollInterval
		}
		sleep := interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (c *ESPNClient) fetchScoreboard(ctx context.Context) ([]types.ScoreEvent, error) {
	var board espnScoreboard
	resp, err := c.http.R().SetContext(ctx).SetResult(&board).Get(c.path)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch scoreboard: status %d", resp.StatusCode())
	}

	receivedAt := time.Now().UnixNano()
	results := make([]types.ScoreEvent, 0, len(board.Events))
	for _, raw := range board.Events {
		evt, ok := normalizeESPN(c.sport, raw, receivedAt)
		if !ok {
			continue
		}
		if c.isNewScore(evt) {
			c.setLastScore(evt)
			results = append(results, evt)
		}
	}
	return results, nil
}

func (c *ESPNClient) isNewScore(evt types.ScoreEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.lastScores[evt.GameID]
	if !ok {
		return true
	}
	return prev != [2]int{evt.HomeScore, evt.AwayScore}
}

func (c *ESPNClient) setLastScore(evt types.ScoreEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastScores[evt.GameID] = [2]int{evt.HomeScore, evt.AwayScore}
}
