// Package sportsfeed adapts public sports scoreboard providers into the
// pipeline's canonical score event shape. Oracle depends only on the Client
// interface, so adding or swapping a provider is a one-line wiring change.
package sportsfeed

import (
	"context"
	"time"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// Client is a single sports data provider adapter.
type Client interface {
	// Startup prepares the client (e.g. builds its HTTP client). Called
	// once before Stream.
	Startup(ctx context.Context) error
	// Shutdown releases any resources. Best-effort.
	Shutdown() error
	// Stream starts polling and returns a channel of normalized score
	// events, closed when ctx is cancelled or the provider gives up.
	Stream(ctx context.Context) <-chan types.ScoreEvent
	// Name identifies the client for logging.
	Name() string
}

// slowPollInterval is the crunch-time-gated slow poll cadence shared by
// every feed client; the fast cadence is configured (default 0.75s,
// sports.poll_interval_s) and passed to each client's constructor.
const slowPollInterval = 30 * time.Second
