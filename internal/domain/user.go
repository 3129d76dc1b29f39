package domain

import "strings"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a registered account holder of the brokerage.
type User struct {
	GUID           string  `xml:"guid" json:"guid"`
	FirstName      string  `xml:"firstName" json:"firstName"`
	LastName       string  `xml:"lastName" json:"lastName"`
	Username       string  `xml:"username" json:"username"`
	PasswordHash   string  `xml:"password" json:"-"`
	Role           Role    `xml:"role" json:"role"`
	Currency       string  `xml:"currency" json:"currency"`
	AvailableFunds float64 `xml:"availableFunds" json:"availableFunds"`
	Shares         []Share `xml:"shares>share" json:"shares"`
}

// Share is a user's holding in a single stock symbol: quantity owned plus
// the cumulative cost basis in the user's account currency. At most one
// Share exists per symbol; it is removed when quantity reaches zero.
type Share struct {
	StockSymbol   string  `xml:"stockSymbol" json:"stockSymbol"`
	Quantity      float64 `xml:"quantity" json:"quantity"`
	PurchaseValue float64 `xml:"purchaseValue" json:"purchaseValue"`
}

// GUIDEquals reports whether the user's GUID matches the given one,
// ignoring case.
func (u User) GUIDEquals(guid string) bool {
	return strings.EqualFold(u.GUID, guid)
}

// FindShare returns the index of the user's position in the given symbol,
// or -1 if the user holds none.
func (u User) FindShare(symbol string) int {
	for i := range u.Shares {
		if strings.EqualFold(u.Shares[i].StockSymbol, symbol) {
			return i
		}
	}
	return -1
}
