package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/pricefeed"
	"sharebrokering/internal/repository"
	"sharebrokering/internal/repository/xmlfile"
)

// stubConverter converts by multiplying with a fixed rate, or fails.
type stubConverter struct {
	rate float64
	err  error
}

func (s stubConverter) Convert(_ context.Context, _, _ string, amount float64) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return amount * s.rate, nil
}

// stubFeed serves canned quotes keyed by upper-cased symbol.
type stubFeed struct {
	quotes map[string]pricefeed.Quote
}

func (s stubFeed) GetSharePrice(_ context.Context, symbol string) (pricefeed.Quote, error) {
	quote, ok := s.quotes[strings.ToUpper(symbol)]
	if !ok {
		return pricefeed.Quote{}, errors.New("price feed unavailable")
	}
	return quote, nil
}

func newStores(t *testing.T) (repository.StockStore, repository.UserStore) {
	t.Helper()
	dir := t.TempDir()
	return xmlfile.NewStockStore(filepath.Join(dir, "stocks.xml")),
		xmlfile.NewUserStore(filepath.Join(dir, "users.xml"))
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func seedStocks(t *testing.T, store repository.StockStore, stocks ...domain.Stock) {
	t.Helper()
	err := store.Update(context.Background(), func(existing *[]domain.Stock) (bool, error) {
		*existing = append(*existing, stocks...)
		return true, nil
	})
	require.NoError(t, err)
}

func seedUser(t *testing.T, store repository.UserStore, user domain.User) {
	t.Helper()
	err := store.Update(context.Background(), func(users *[]domain.User) (bool, error) {
		*users = append(*users, user)
		return true, nil
	})
	require.NoError(t, err)
}

func listedStock(name, symbol string, shares, price float64) domain.Stock {
	return domain.Stock{
		Name:            name,
		Symbol:          symbol,
		AvailableShares: shares,
		Price: domain.SharePrice{
			Currency: "USD",
			Price:    price,
			Updated:  time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		},
	}
}
