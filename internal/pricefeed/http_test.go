package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetSharePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/price", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"stockSymbol": "AAPL",
			"stockPrice": 181.25,
			"stockCurrency": "USD",
			"stockPriceTime": "2026-09-01T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, srv.Client())
	quote, err := client.GetSharePrice(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", quote.Symbol)
	require.Equal(t, 181.25, quote.Price)
	require.Equal(t, "USD", quote.Currency)
	require.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), quote.Updated)
}

func TestGetSharePriceUppercasesSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stockPrice": 1, "stockCurrency": "USD", "stockPriceTime": "2026-09-01T10:00:00Z"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, srv.Client())
	quote, err := client.GetSharePrice(context.Background(), "aapl")
	require.NoError(t, err)
	require.Equal(t, "AAPL", quote.Symbol)
}

func TestGetSharePriceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, srv.Client())
	_, err := client.GetSharePrice(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestGetSharePriceEmptySymbol(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", nil)
	_, err := client.GetSharePrice(context.Background(), "  ")
	require.Error(t, err)
}
