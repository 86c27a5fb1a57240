// Package watcher maintains a live replica of the exchange's order book for
// every subscribed ticker over a persistent, signed WebSocket connection.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/guaranteebettor/tradebot/internal/exchange"
	"github.com/guaranteebettor/tradebot/pkg/types"
)

const (
	pingInterval   = 20 * time.Second
	pingTimeout    = 10 * time.Second
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
	writeTimeout   = 5 * time.Second
)

// onUpdate is invoked for every decoded market update frame.
type onUpdate func(types.MarketUpdate)

// wsClient is the low-level transport: connect/reconnect, subscription
// bookkeeping, and wire decoding. The Watcher agent above it owns the cache
// and bus publication; this type knows nothing about either.
type wsClient struct {
	url    string
	auth   *exchange.Auth
	onMsg  onUpdate
	logger *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	subMu      sync.Mutex
	subscribed map[string]bool
	pending    chan []string

	seqMu   sync.Mutex
	lastSeq map[string]int64
}

func newWSClient(wsURL string, auth *exchange.Auth, onMsg onUpdate, logger *slog.Logger) *wsClient {
	return &wsClient{
		url:        wsURL,
		auth:       auth,
		onMsg:      onMsg,
		logger:     logger.With("component", "watcher_ws"),
		subscribed: make(map[string]bool),
		pending:    make(chan []string, 32),
		lastSeq:    make(map[string]int64),
	}
}

// subscribe is idempotent against the already-subscribed set. If the socket
// is live the new tickers go out immediately; otherwise they queue for the
// next successful connect.
func (c *wsClient) subscribe(tickers []string) {
	c.subMu.Lock()
	var fresh []string
	for _, t := range tickers {
		if !c.subscribed[t] {
			c.subscribed[t] = true
			fresh = append(fresh, t)
		}
	}
	c.subMu.Unlock()
	if len(fresh) == 0 {
		return
	}

	c.connMu.Lock()
	live := c.conn != nil
	c.connMu.Unlock()

	if live {
		if err := c.sendSubscribe(fresh); err != nil {
			c.logger.Warn("mid-session subscribe failed, will re-subscribe on reconnect", "error", err)
		}
		return
	}
	select {
	case c.pending <- fresh:
	default:
		c.logger.Warn("pending subscribe queue full, tickers will subscribe on reconnect")
	}
}

func (c *wsClient) unsubscribe(tickers []string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, t := range tickers {
		delete(c.subscribed, t)
	}
}

// run owns the reconnect loop: exponential backoff from 0.5s to 5s,
// resetting on every clean connect.
func (c *wsClient) run(ctx context.Context) {
	backoff := initialBackoff
	resetBackoff := func() { backoff = initialBackoff }
	for {
		if ctx.Err() != nil {
			return
		}
		err := c.connectAndRead(ctx, resetBackoff)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("watcher websocket disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// connectAndRead dials, subscribes, and reads until the connection drops.
// onConnected is invoked immediately after a successful dial so the caller
// can reset its backoff — a clean connect, however briefly it lasts, means
// the next disconnect should not inherit an already-grown backoff.
func (c *wsClient) connectAndRead(ctx context.Context, onConnected func()) error {
	path, err := exchange.PathFromURL(c.url)
	if err != nil {
		return fmt.Errorf("parse ws url: %w", err)
	}
	headers, err := c.auth.Headers(http.MethodGet, path)
	if err != nil {
		return fmt.Errorf("sign handshake: %w", err)
	}
	httpHeader := make(http.Header, len(headers))
	for k, v := range headers {
		httpHeader.Set(k, v)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, httpHeader)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	onConnected()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer func() {
		c.connMu.Lock()
		conn.Close()
		c.conn = nil
		c.connMu.Unlock()
	}()

	c.logger.Info("watcher websocket connected")

	c.subMu.Lock()
	all := make([]string, 0, len(c.subscribed))
	for t := range c.subscribed {
		all = append(all, t)
	}
	c.subMu.Unlock()
	if err := c.sendSubscribe(all); err != nil {
		return fmt.Errorf("initial subscribe: %w", err)
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case batch := <-c.pending:
			if err := c.sendSubscribe(batch); err != nil {
				return fmt.Errorf("pending subscribe: %w", err)
			}
		default:
		}

		conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.handleMessage(raw)
	}
}

func (c *wsClient) sendSubscribe(tickers []string) error {
	if len(tickers) == 0 {
		return nil
	}
	msg := struct {
		ID     string `json:"id"`
		Cmd    string `json:"cmd"`
		Params struct {
			Channels      []string `json:"channels"`
			MarketTickers []string `json:"market_tickers"`
		} `json:"params"`
	}{ID: uuid.NewString(), Cmd: "subscribe"}
	msg.Params.Channels = []string{"orderbook_delta"}
	msg.Params.MarketTickers = tickers
	return c.writeJSON(msg)
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != conn {
				c.connMu.Unlock()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(pingTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()
			if err != nil {
				c.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

type wsFrame struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string    `json:"market_ticker"`
		Seq          int64     `json:"seq"`
		Yes          [][2]int  `json:"yes"`
		No           [][2]int  `json:"no"`
	} `json:"msg"`
}

func (c *wsClient) handleMessage(raw []byte) {
	receivedAt := time.Now().UnixNano()

	var frame wsFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn("malformed watcher message", "error", err)
		return
	}
	if frame.Type != "orderbook_snapshot" && frame.Type != "orderbook_delta" {
		return
	}
	ticker := frame.Msg.MarketTicker
	if ticker == "" {
		return
	}

	// Sequence-gap detection: snapshots reset the tracked sequence
	// unconditionally, which is exactly what re-establishes state after a
	// detected gap — no auto-refetch, warn only.
	c.seqMu.Lock()
	last, known := c.lastSeq[ticker]
	if known && frame.Type == "orderbook_delta" && frame.Msg.Seq != last+1 {
		c.logger.Warn("sequence gap detected", "ticker", ticker, "expected", last+1, "got", frame.Msg.Seq)
	}
	c.lastSeq[ticker] = frame.Msg.Seq
	c.seqMu.Unlock()

	yesAskPrice, yesAskOK := bestAsk(frame.Msg.Yes)
	yesBidPrice, yesBidOK := bestBid(frame.Msg.Yes)
	noAskPrice, noAskOK := bestAsk(frame.Msg.No)
	noBidPrice, noBidOK := bestBid(frame.Msg.No)

	update := types.MarketUpdate{
		MarketTicker: ticker,
		YesBid:       pickOr(yesBidPrice, yesBidOK, 0),
		YesAsk:       pickOr(yesAskPrice, yesAskOK, 100),
		NoBid:        pickOr(noBidPrice, noBidOK, 0),
		NoAsk:        pickOr(noAskPrice, noAskOK, 100),
		YesVolume:    volumeAt(frame.Msg.Yes, yesAskPrice, yesAskOK),
		Sequence:     frame.Msg.Seq,
		ReceivedAtNs: receivedAt,
	}
	c.onMsg(update)
}

func pickOr(value int, ok bool, fallback int) int {
	if ok {
		return value
	}
	return fallback
}

// bestAsk is the minimum price with qty > 0 among the levels.
func bestAsk(levels [][2]int) (int, bool) {
	best, found := 0, false
	for _, lvl := range levels {
		price, qty := lvl[0], lvl[1]
		if qty <= 0 {
			continue
		}
		if !found || price < best {
			best, found = price, true
		}
	}
	return best, found
}

// bestBid is the maximum price with qty > 0 among the levels.
func bestBid(levels [][2]int) (int, bool) {
	best, found := 0, false
	for _, lvl := range levels {
		price, qty := lvl[0], lvl[1]
		if qty <= 0 {
			continue
		}
		if !found || price > best {
			best, found = price, true
		}
	}
	return best, found
}

func volumeAt(levels [][2]int, price int, hasPrice bool) int {
	if !hasPrice {
		return 0
	}
	for _, lvl := range levels {
		if lvl[0] == price {
			return lvl[1]
		}
	}
	return 0
}
