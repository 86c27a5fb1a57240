package sportsfeed

import (
	"context"
	"fmt"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// OpticOddsClient is a documented-only stub: OpticOdds was evaluated as a
// third sports feed source but its contract-specific schema was never
// implemented against. Wiring it in requires filling in Startup/Stream with
// a real HTTP client once the provider's schema is confirmed.
type OpticOddsClient struct {
	sport types.Sport
}

// NewOpticOddsClient returns an unimplemented client for sport.
func NewOpticOddsClient(sport types.Sport) *OpticOddsClient {
	return &OpticOddsClient{sport: sport}
}

func (c *OpticOddsClient) Name() string { return fmt.Sprintf("optic_odds:%s", c.sport) }

func (c *OpticOddsClient) Startup(ctx context.Context) error {
	return fmt.Errorf("optic_odds: not implemented")
}

func (c *OpticOddsClient) Shutdown() error { return nil }

func (c *OpticOddsClient) Stream(ctx context.Context) <-chan types.ScoreEvent {
	ch := make(chan types.ScoreEvent)
	close(ch)
	return ch
}
