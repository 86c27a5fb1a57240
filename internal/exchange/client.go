package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

// Client is the signed REST transport to the exchange, built on resty the
// same way the teacher's exchange client is: a shared *resty.Client with
// base URL, timeout, retry-on-5xx, and per-request signed header injection.
// POST requests (order placement) are never retried.
type Client struct {
	http   *resty.Client
	auth   *Auth
	logger *slog.Logger
}

// NewClient builds a Client against baseURL, signing every request with auth.
func NewClient(baseURL string, auth *Auth, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r != nil && r.Request != nil && r.Request.Method == http.MethodPost {
				return false
			}
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	httpClient.SetHeader("Content-Type", "application/json")
	httpClient.GetClient().Transport = &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     60 * time.Second,
	}

	return &Client{
		http:   httpClient,
		auth:   auth,
		logger: logger.With("component", "exchange_client"),
	}
}

// Startup pre-resolves DNS for the base URL's host and issues a warm-up
// request so the connection pool holds a live TCP+TLS session before the
// hot path needs one.
func (c *Client) Startup(ctx context.Context) error {
	if host, err := hostOf(c.http.BaseURL); err == nil {
		resolveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := net.DefaultResolver.LookupHost(resolveCtx, host); err != nil {
			c.logger.Warn("dns pre-resolve failed", "host", host, "error", err)
		}
	}
	if _, err := c.GetExchangeStatus(ctx); err != nil {
		return fmt.Errorf("warm-up request: %w", err)
	}
	return nil
}

// RunKeepalive pings the exchange status endpoint on interval until ctx is
// cancelled, keeping the connection pool warm.
func (c *Client) RunKeepalive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.GetExchangeStatus(ctx); err != nil {
				c.logger.Warn("keepalive ping failed", "error", err)
			}
		}
	}
}

func (c *Client) signedRequest(ctx context.Context, method, path string) (*resty.Request, error) {
	headers, err := c.auth.Headers(method, path)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetHeaders(headers), nil
}

// GetExchangeStatus pings the cheap status endpoint, used for warm-up and keepalive.
func (c *Client) GetExchangeStatus(ctx context.Context) (map[string]any, error) {
	path := "/exchange/status"
	req, err := c.signedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	resp, err := req.SetResult(&result).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get exchange status: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get exchange status: status %d", resp.StatusCode())
	}
	return result, nil
}

// GetBalance fetches the portfolio balance.
func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	path := "/portfolio/balance"
	req, err := c.signedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	var bal Balance
	resp, err := req.SetResult(&bal).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get balance: status %d", resp.StatusCode())
	}
	return &bal, nil
}

// GetMarkets lists markets, optionally filtered by series ticker, for
// Brain's registration sweep.
func (c *Client) GetMarkets(ctx context.Context, seriesTicker string, limit int) ([]Market, error) {
	path := "/markets"
	req, err := c.signedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	if seriesTicker != "" {
		req.SetQueryParam("series_ticker", seriesTicker)
	}
	var result marketsResponse
	resp, err := req.SetResult(&result).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get markets: status %d", resp.StatusCode())
	}
	return result.Markets, nil
}

// GetMarket fetches a single market's current book, used as Brain's one-shot
// REST fallback when the Watcher cache has no entry yet.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*Market, error) {
	path := "/markets/" + ticker
	req, err := c.signedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	var result marketResponse
	resp, err := req.SetResult(&result).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get market %s: status %d", ticker, resp.StatusCode())
	}
	return &result.Market, nil
}

// PlaceOrder submits a signed limit buy order.
func (c *Client) PlaceOrder(ctx context.Context, ticker string, side types.Side, quantity, limitPriceCents int, clientOrderID string) (*OrderResult, error) {
	path := "/portfolio/orders"
	req, err := c.signedRequest(ctx, http.MethodPost, path)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"ticker":          ticker,
		"action":          "buy",
		"type":            "limit",
		"side":            string(side),
		"count":           quantity,
		"limit_price":     limitPriceCents,
		"client_order_id": clientOrderID,
	}
	var result orderResponse
	resp, err := req.SetBody(body).SetResult(&result).Post(path)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("place order: status %d", resp.StatusCode())
	}
	return &result.Order, nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := "/portfolio/orders/" + orderID
	req, err := c.signedRequest(ctx, http.MethodDelete, path)
	if err != nil {
		return err
	}
	resp, err := req.Delete(path)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("cancel order %s: status %d", orderID, resp.StatusCode())
	}
	return nil
}

// GetOrder fetches the current state of a previously-placed order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResult, error) {
	path := "/portfolio/orders/" + orderID
	req, err := c.signedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	var result orderResponse
	resp, err := req.SetResult(&result).Get(path)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get order %s: status %d", orderID, resp.StatusCode())
	}
	return &result.Order, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
