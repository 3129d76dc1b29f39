package domain

import (
	"strings"
	"time"
)

// Stock represents a tradable company stock listed on the brokerage.
type Stock struct {
	Name            string     `xml:"stockName" json:"stockName"`
	Symbol          string     `xml:"stockSymbol" json:"stockSymbol"`
	AvailableShares float64    `xml:"availableShares" json:"availableShares"`
	Price           SharePrice `xml:"price" json:"price"`
}

// SharePrice is the last known quote for a stock, replaced wholesale on
// each refresh.
type SharePrice struct {
	Currency string    `xml:"currency" json:"currency"`
	Price    float64   `xml:"price" json:"price"`
	Updated  time.Time `xml:"updated" json:"updated"`
}

// SymbolEquals reports whether the stock's symbol matches the given one,
// ignoring case. Symbols are case-insensitive identifiers throughout the
// system.
func (s Stock) SymbolEquals(symbol string) bool {
	return strings.EqualFold(s.Symbol, symbol)
}

// UserStock combines listed stock information with a user's position in it.
type UserStock struct {
	StockName            string     `json:"stockName"`
	StockSymbol          string     `json:"stockSymbol"`
	AvailableShares      float64    `json:"availableShares"`
	Price                SharePrice `json:"price"`
	UserPurchaseCurrency string     `json:"userPurchaseCurrency"`
	UserQuantity         float64    `json:"userQuantity"`
	UserPurchaseValue    float64    `json:"userPurchaseValue"`
}
