// Package oracle fetches SOL-denominated reference prices for non-wSOL
// quote assets, used only in liquidity measurement.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	// TTL bounds how stale a cached price may be. Prices feed the
	// liquidity display measure, never the swap math, so short staleness
	// is acceptable.
	TTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.jup.ag/price/v2"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
		TTL:   30 * time.Second,
		cache: make(map[string]cachedPrice),
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("price api http %d", e.StatusCode)
	}
	return fmt.Sprintf("price api http %d: %s", e.StatusCode, b)
}

// GetPriceSOL returns how many SOL one whole unit of mint is worth.
func (c *Client) GetPriceSOL(ctx context.Context, mint string) (decimal.Decimal, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return decimal.Zero, fmt.Errorf("mint is required")
	}

	if p, ok := c.cached(mint); ok {
		return p, nil
	}

	q := url.Values{}
	q.Set("ids", mint)
	q.Set("vsToken", "So11111111111111111111111111111111111111112")

	u := c.BaseURL + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return decimal.Zero, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decimal.Zero, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	entry, ok := out.Data[mint]
	if !ok || entry.Price == "" {
		return decimal.Zero, fmt.Errorf("no price for mint %s", mint)
	}

	price, err := decimal.NewFromString(entry.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q for mint %s: %w", entry.Price, mint, err)
	}

	c.store(mint, price)
	return price, nil
}

func (c *Client) cached(mint string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[mint]
	if !ok || time.Since(entry.fetchedAt) > c.TTL {
		return decimal.Zero, false
	}
	return entry.price, true
}

func (c *Client) store(mint string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[mint] = cachedPrice{price: price, fetchedAt: time.Now()}
}
