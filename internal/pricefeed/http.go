package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to the share price service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type quoteResponse struct {
	StockSymbol    string  `json:"stockSymbol"`
	StockPrice     float64 `json:"stockPrice"`
	StockCurrency  string  `json:"stockCurrency"`
	StockPriceTime string  `json:"stockPriceTime"`
}

func (c *HTTPClient) GetSharePrice(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("symbol is required")
	}

	addr := fmt.Sprintf("%s/price?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("fetch price for %s: %s", symbol, resp.Status)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode price for %s: %w", symbol, err)
	}

	updated, err := time.Parse(time.RFC3339, payload.StockPriceTime)
	if err != nil {
		// The feed occasionally returns quotes without a usable timestamp;
		// fall back to the observation time.
		updated = time.Now().UTC()
	}

	return Quote{
		Symbol:   strings.ToUpper(symbol),
		Price:    payload.StockPrice,
		Currency: payload.StockCurrency,
		Updated:  updated,
	}, nil
}
