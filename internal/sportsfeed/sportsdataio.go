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

// sportsDataCompetitionCodes maps a soccer sport tag to the competition
// segment SportsData.io's soccer endpoint expects.
var sportsDataCompetitionCodes = map[types.Sport]string{
	types.SportPremierLeague:   "EPL",
	types.SportChampionsLeague: "UCL",
}

// SportsDataIOClient polls SportsData.io's per-sport "GamesByDate" endpoint.
// NCAA basketball uses /GamesByDate/{date}; soccer uses
// /GamesByDate/{competition}/{date}.
type SportsDataIOClient struct {
	sport            types.Sport
	apiKey           string
	baseURL          string
	competitionCode  string
	fastPollInterval time.Duration
	gate             *market.CrunchTimeGate
	http             *resty.Client
	logger           *slog.Logger

	mu         sync.Mutex
	lastScores map[string][2]int
}

// NewSportsDataIOClient builds a SportsData.io adapter for sport.
func NewSportsDataIOClient(sport types.Sport, apiKey, baseURL string, fastPollInterval time.Duration, gate *market.CrunchTimeGate, logger *slog.Logger) (*SportsDataIOClient, error) {
	competitionCode := ""
	if sport != types.SportNCAABasketball {
		code, ok := sportsDataCompetitionCodes[sport]
		if !ok {
			return nil, fmt.Errorf("sportsdata_io: unsupported sport %s", sport)
		}
		competitionCode = code
	}
	return &SportsDataIOClient{
		sport:            sport,
		apiKey:           apiKey,
		baseURL:          baseURL,
		competitionCode:  competitionCode,
		fastPollInterval: fastPollInterval,
		gate:             gate,
		lastScores:       make(map[string][2]int),
		logger:           logger.With("component", "sportsdata_io_client", "sport", sport),
	}, nil
}

func (c *SportsDataIOClient) Name() string { return fmt.Sprintf("sportsdata_io:%s", c.sport) }

func (c *SportsDataIOClient) Startup(ctx context.Context) error {
	c.http = resty.New().SetBaseURL(c.baseURL).SetTimeout(4 * time.Second)
	return nil
}

func (c *SportsDataIOClient) Shutdown() error { return nil }

func (c *SportsDataIOClient) Stream(ctx context.Context) <-chan types.ScoreEvent {
	out := make(chan types.ScoreEvent, 16)
	go c.pollLoop(ctx, out)
	return out
}

func (c *SportsDataIOClient) pollLoop(ctx context.Context, out chan<- types.ScoreEvent) {
	defer close(out)
	consecutiveErrors := 0
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()

		events, err := c.fetchLiveGames(ctx)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors == 1 || consecutiveErrors%100 == 0 {
				c.logger.Warn("sportsdata_io poll error", "count", consecutiveErrors, "error", err)
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

func (c *SportsDataIOClient) fetchLiveGames(ctx context.Context) ([]types.ScoreEvent, error) {
	today := time.Now().UTC().Format("2006-01-02")
	path := fmt.Sprintf("/GamesByDate/%s", today)
	if c.competitionCode != "" {
		path = fmt.Sprintf("/GamesByDate/%s/%s", c.competitionCode, today)
	}

	var games []sportsDataGame
	resp, err := c.http.R().SetContext(ctx).SetQueryParam("key", c.apiKey).SetResult(&games).Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch games: status %d", resp.StatusCode())
	}

	receivedAt := time.Now().UnixNano()
	results := make([]types.ScoreEvent, 0, len(games))
	for _, g := range games {
		var evt types.ScoreEvent
		var ok bool
		if c.sport == types.SportNCAABasketball {
			evt, ok = normalizeSportsDataNCAA(g, receivedAt)
		} else {
			evt, ok = normalizeSportsDataSoccer(g, c.sport, receivedAt)
		}
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

func (c *SportsDataIOClient) isNewScore(evt types.ScoreEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.lastScores[evt.GameID]
	if !ok {
		return true
	}
	return prev != [2]int{evt.HomeScore, evt.AwayScore}
}

func (c *SportsDataIOClient) setLastScore(evt types.ScoreEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastScores[evt.GameID] = [2]int{evt.HomeScore, evt.AwayScore}
}
