package watcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/guaranteebettor/tradebot/internal/bus"
	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

// Watcher maintains a local replica of the exchange order book for every
// subscribed ticker, guarded by an RWMutex, and republishes every update
// onto the bus. It owns no transport logic itself — that lives in wsClient
// — only the cache and the bus hand-off.
type Watcher struct {
	bus *bus.Bus
	ws  *wsClient

	mu    sync.RWMutex
	cache map[string]types.MarketUpdate

	logger *slog.Logger
}

// New builds a Watcher against wsURL, signing the handshake with auth.
func New(b *bus.Bus, wsURL string, auth *exchange.Auth, logger *slog.Logger) *Watcher {
	w := &Watcher{
		bus:    b,
		cache:  make(map[string]types.MarketUpdate),
		logger: logger.With("component", "watcher"),
	}
	w.ws = newWSClient(wsURL, auth, w.HandleUpdate, logger)
	return w
}

// Run blocks maintaining the WebSocket connection (with reconnect/backoff)
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.ws.run(ctx)
}

// Subscribe adds tickers to the live subscription set. Idempotent: already
// subscribed tickers are ignored. Safe to call from any goroutine.
func (w *Watcher) Subscribe(tickers []string) {
	w.ws.subscribe(tickers)
}

// Unsubscribe removes tickers from the live subscription set.
func (w *Watcher) Unsubscribe(tickers []string) {
	w.ws.unsubscribe(tickers)
}

// Latest returns the most recent cached update for a ticker, O(1) and
// non-blocking.
func (w *Watcher) Latest(ticker string) (types.MarketUpdate, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	upd, ok := w.cache[ticker]
	return upd, ok
}

// HandleUpdate is the transport's callback: it updates the cache and
// republishes on the bus. In practice only the Watcher's own WebSocket
// goroutine calls it, but it takes the write lock regardless since the
// cache is also read concurrently from Brain via Latest.
func (w *Watcher) HandleUpdate(upd types.MarketUpdate) {
	w.mu.Lock()
	w.cache[upd.MarketTicker] = upd
	w.mu.Unlock()
	w.bus.PublishMarketUpdate(upd)
}
