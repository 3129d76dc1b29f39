package pricefeed

import (
	"context"
	"time"
)

// Quote is a fresh price observation for a stock symbol.
type Quote struct {
	Symbol   string
	Price    float64
	Currency string
	Updated  time.Time
}

// Client fetches current share prices from the external price feed. The
// feed is treated as unreliable; every caller must handle a failed lookup
// without aborting its wider operation.
type Client interface {
	GetSharePrice(ctx context.Context, symbol string) (Quote, error)
}
