package exchange

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/guaranteebettor/tradebot/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	path, _ := writeEd25519Key(t)
	auth, err := NewAuth("key-1", path)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	return NewClient(srv.URL, auth, testLogger())
}

func TestGetExchangeStatusSignsRequest(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange/status" {
			t.Errorf("path = %q, want /exchange/status", r.URL.Path)
		}
		for _, h := range []string{HeaderAccessKey, HeaderAccessTimestamp, HeaderAccessSignature} {
			if r.Header.Get(h) == "" {
				t.Errorf("missing header %s", h)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	result, err := c.GetExchangeStatus(t.Context())
	if err != nil {
		t.Fatalf("GetExchangeStatus: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("result = %v, want ok=true", result)
	}
}

func TestGetMarketsSetsQueryParams(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "50" {
			t.Errorf("limit = %q, want 50", q.Get("limit"))
		}
		if q.Get("series_ticker") != "KXNCAAMBTOTAL" {
			t.Errorf("series_ticker = %q, want KXNCAAMBTOTAL", q.Get("series_ticker"))
		}
		json.NewEncoder(w).Encode(marketsResponse{Markets: []Market{
			{Ticker: "KXNCAAMBTOTAL-26FEB19WEBBRAD-177", YesAsk: 88, YesBid: 80},
		}})
	})

	markets, err := c.GetMarkets(t.Context(), "KXNCAAMBTOTAL", 50)
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if len(markets) != 1 || markets[0].YesAsk != 88 {
		t.Fatalf("markets = %+v, want one market with yes_ask=88", markets)
	}
}

func TestGetMarketFetchesSingleTicker(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/KXNCAAMBTOTAL-26FEB19WEBBRAD-177" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(marketResponse{Market: Market{Ticker: "KXNCAAMBTOTAL-26FEB19WEBBRAD-177", YesAsk: 90}})
	})

	market, err := c.GetMarket(t.Context(), "KXNCAAMBTOTAL-26FEB19WEBBRAD-177")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if market.YesAsk != 90 {
		t.Errorf("yes_ask = %d, want 90", market.YesAsk)
	}
}

func TestPlaceOrderPostsSignedBody(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["ticker"] != "KXNCAAMBTOTAL-26FEB19WEBBRAD-177" {
			t.Errorf("ticker = %v", body["ticker"])
		}
		if body["side"] != "yes" {
			t.Errorf("side = %v, want yes", body["side"])
		}
		if body["client_order_id"] != "cid-1" {
			t.Errorf("client_order_id = %v, want cid-1", body["client_order_id"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(orderResponse{Order: OrderResult{
			OrderID: "order-1", Status: "filled", FilledQuantity: 5, AvgPriceCents: 91,
		}})
	})

	result, err := c.PlaceOrder(t.Context(), "KXNCAAMBTOTAL-26FEB19WEBBRAD-177", types.SideYes, 5, 90, "cid-1")
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.OrderID != "order-1" || result.Status != "filled" || result.AvgPriceCents != 91 {
		t.Fatalf("result = %+v", result)
	}
}

func TestPlaceOrderNon2xxReturnsError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	if _, err := c.PlaceOrder(t.Context(), "TICK-1", types.SideNo, 1, 10, "cid-2"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestCancelOrderDeletesByID(t *testing.T) {
	t.Parallel()
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.CancelOrder(t.Context(), "order-9"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if gotPath != "/portfolio/orders/order-9" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestHostOfParsesHostname(t *testing.T) {
	t.Parallel()
	host, err := hostOf("https://api.exchange.example:443/trade-api/v2")
	if err != nil {
		t.Fatalf("hostOf: %v", err)
	}
	if host != "api.exchange.example" {
		t.Errorf("host = %q, want api.exchange.example", host)
	}
}
