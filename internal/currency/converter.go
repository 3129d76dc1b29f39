package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Converter converts an amount between two currencies via an external
// collaborator. A failed conversion aborts the calling operation; no caller
// ever applies an unconverted amount.
type Converter interface {
	Convert(ctx context.Context, baseCurrency, targetCurrency string, amount float64) (float64, error)
}

// APIClient calls the currency conversion HTTP API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type convertResponse struct {
	Status string  `json:"status"`
	Value  float64 `json:"value"`
}

func (c *APIClient) Convert(ctx context.Context, baseCurrency, targetCurrency string, amount float64) (float64, error) {
	query := url.Values{}
	query.Set("baseCurrency", baseCurrency)
	query.Set("targetCurrency", targetCurrency)
	query.Set("value", fmt.Sprintf("%f", amount))

	addr := fmt.Sprintf("%s/convert?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, fmt.Errorf("build convert request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("convert %s to %s: %w", baseCurrency, targetCurrency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("convert %s to %s: %s", baseCurrency, targetCurrency, resp.Status)
	}

	var payload convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode conversion response: %w", err)
	}
	if !strings.EqualFold(payload.Status, "success") {
		return 0, fmt.Errorf("conversion %s to %s failed: status %q", baseCurrency, targetCurrency, payload.Status)
	}

	return payload.Value, nil
}
