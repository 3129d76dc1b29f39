package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/pricefeed"
)

func setupRegistry(t *testing.T, feed stubFeed, convert stubConverter, seed ...domain.Stock) (StockService, UserService, func(t *testing.T) ([]domain.Stock, []domain.User)) {
	t.Helper()
	stocks, users := newStores(t)
	ledger := NewUserService(users, stocks, convert, quietLogger())
	registry := NewStockService(stocks, ledger, feed, quietLogger())
	if len(seed) > 0 {
		seedStocks(t, stocks, seed...)
	}

	dump := func(t *testing.T) ([]domain.Stock, []domain.User) {
		t.Helper()
		var gotStocks []domain.Stock
		var gotUsers []domain.User
		require.NoError(t, stocks.View(context.Background(), func(list []domain.Stock) error {
			gotStocks = append(gotStocks, list...)
			return nil
		}))
		require.NoError(t, users.View(context.Background(), func(list []domain.User) error {
			gotUsers = append(gotUsers, list...)
			return nil
		}))
		return gotStocks, gotUsers
	}
	return registry, ledger, dump
}

func TestGetBySymbolIsCaseInsensitive(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180))

	stock, err := registry.GetBySymbol(context.Background(), "aApL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", stock.Symbol)

	_, err = registry.GetBySymbol(context.Background(), "MSFT")
	require.ErrorIs(t, err, ErrStockNotFound)
}

func TestSearchDefaultsToSymbolDescending(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180),
		listedStock("Amazon.com Inc", "AMZN", 100, 140),
		listedStock("Tesla Inc", "TSLA", 100, 250),
	)

	result, err := registry.Search(context.Background(), SearchCriteria{Price: -1})
	require.NoError(t, err)

	symbols := make([]string, len(result))
	for i := range result {
		symbols[i] = result[i].Symbol
	}
	require.Equal(t, []string{"TSLA", "AMZN", "AAPL"}, symbols)
}

func TestSearchPriceLessOrEqualExcludesMoreExpensive(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180),
		listedStock("Amazon.com Inc", "AMZN", 100, 99.5),
		listedStock("Tesla Inc", "TSLA", 100, 250),
	)

	result, err := registry.Search(context.Background(), SearchCriteria{
		PriceFilter: PriceFilterLessOrEqual,
		Price:       100,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "AMZN", result[0].Symbol)
}

func TestSearchFiltersCombine(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180),
		listedStock("Amazon.com Inc", "AMZN", 100, 140),
		listedStock("Tesla Inc", "TSLA", 100, 250),
	)

	result, err := registry.Search(context.Background(), SearchCriteria{
		Name:   "inc",
		Symbol: "a",
		Price:  -1,
		SortBy: SortByPrice,
		Order:  SortAscending,
	})
	require.NoError(t, err)

	symbols := make([]string, len(result))
	for i := range result {
		symbols[i] = result[i].Symbol
	}
	require.Equal(t, []string{"AMZN", "AAPL", "TSLA"}, symbols)
}

func TestSearchByCurrency(t *testing.T) {
	gbpStock := listedStock("Shell plc", "SHEL", 100, 2500)
	gbpStock.Price.Currency = "GBX"

	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180),
		gbpStock,
	)

	result, err := registry.Search(context.Background(), SearchCriteria{Currency: "gbx", Price: -1})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "SHEL", result[0].Symbol)
}

func TestAddThenLookupWithDifferentCase(t *testing.T) {
	feed := stubFeed{quotes: map[string]pricefeed.Quote{
		"FOO": {Symbol: "FOO", Price: 12.5, Currency: "USD", Updated: time.Now().UTC()},
	}}
	registry, _, _ := setupRegistry(t, feed, stubConverter{rate: 1})
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, "Foo Industries", "FOO", 10))

	stock, err := registry.GetBySymbol(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, "FOO", stock.Symbol)
	require.Equal(t, 12.5, stock.Price.Price)
	require.Equal(t, 10.0, stock.AvailableShares)
}

func TestAddRejectsDuplicateSymbolAndFeedFailure(t *testing.T) {
	feed := stubFeed{quotes: map[string]pricefeed.Quote{
		"FOO": {Symbol: "FOO", Price: 12.5, Currency: "USD"},
	}}
	registry, _, _ := setupRegistry(t, feed, stubConverter{rate: 1})
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, "Foo Industries", "FOO", 10))
	require.ErrorIs(t, registry.Add(ctx, "Foo Copycat", "foo", 5), ErrStockAlreadyExists)

	// No quote available for BAR: the addition must fail.
	require.Error(t, registry.Add(ctx, "Bar Industries", "BAR", 5))
	_, err := registry.GetBySymbol(ctx, "BAR")
	require.ErrorIs(t, err, ErrStockNotFound)
}

func TestAddKeepsCollectionOrderedByName(t *testing.T) {
	feed := stubFeed{quotes: map[string]pricefeed.Quote{
		"AAA": {Price: 1, Currency: "USD"},
		"ZZZ": {Price: 1, Currency: "USD"},
		"MMM": {Price: 1, Currency: "USD"},
	}}
	registry, _, _ := setupRegistry(t, feed, stubConverter{rate: 1})
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, "Zebra Corp", "ZZZ", 1))
	require.NoError(t, registry.Add(ctx, "Acme Corp", "AAA", 1))
	require.NoError(t, registry.Add(ctx, "Middle Corp", "MMM", 1))

	all, err := registry.GetAll(ctx)
	require.NoError(t, err)

	names := make([]string, len(all))
	for i := range all {
		names[i] = all[i].Name
	}
	require.Equal(t, []string{"Acme Corp", "Middle Corp", "Zebra Corp"}, names)
}

func TestPurchaseChargesUserAndReducesAvailableShares(t *testing.T) {
	registry, ledger, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 2},
		listedStock("Apple Inc", "AAPL", 100, 10))
	ctx := context.Background()

	require.NoError(t, ledger.Register(ctx, "Alice", "Smith", "alice", "hunter22", "GBP"))
	auth, err := ledger.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, auth.GUID, 1000))

	require.NoError(t, registry.Purchase(ctx, auth.GUID, "aapl", 5))

	stocks, users := dump(t)
	require.Equal(t, 95.0, stocks[0].AvailableShares)
	// 5 shares * 10 USD * rate 2 = 100 GBP deducted.
	require.Equal(t, 900.0, users[0].AvailableFunds)
	require.Equal(t, 5.0, users[0].Shares[0].Quantity)
	require.Equal(t, 100.0, users[0].Shares[0].PurchaseValue)
}

func TestPurchaseValidation(t *testing.T) {
	registry, ledger, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 10, 10))
	ctx := context.Background()

	require.NoError(t, ledger.Register(ctx, "Alice", "Smith", "alice", "hunter22", "USD"))
	auth, err := ledger.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, auth.GUID, 10000))

	require.Error(t, registry.Purchase(ctx, auth.GUID, "AAPL", 0))
	require.Error(t, registry.Purchase(ctx, auth.GUID, "AAPL", -2))
	require.ErrorIs(t, registry.Purchase(ctx, auth.GUID, "MSFT", 1), ErrStockNotFound)
	require.ErrorIs(t, registry.Purchase(ctx, auth.GUID, "AAPL", 11), ErrInsufficientShares)

	stocks, users := dump(t)
	require.Equal(t, 10.0, stocks[0].AvailableShares, "failed purchases must not mutate the registry")
	require.Equal(t, 10000.0, users[0].AvailableFunds)
}

func TestSellCreditsUserAndIncreasesAvailableShares(t *testing.T) {
	registry, ledger, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 10))
	ctx := context.Background()

	require.NoError(t, ledger.Register(ctx, "Alice", "Smith", "alice", "hunter22", "USD"))
	auth, err := ledger.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, auth.GUID, 1000))
	require.NoError(t, registry.Purchase(ctx, auth.GUID, "AAPL", 5))

	require.NoError(t, registry.Sell(ctx, auth.GUID, "AAPL", 5))

	stocks, users := dump(t)
	require.Equal(t, 100.0, stocks[0].AvailableShares)
	require.Equal(t, 1000.0, users[0].AvailableFunds)
	require.Empty(t, users[0].Shares, "selling the whole position removes it")
}

func TestSellRejectsUnheldPosition(t *testing.T) {
	registry, ledger, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 10))
	ctx := context.Background()

	require.NoError(t, ledger.Register(ctx, "Alice", "Smith", "alice", "hunter22", "USD"))
	auth, err := ledger.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)

	require.ErrorIs(t, registry.Sell(ctx, auth.GUID, "AAPL", 1), ErrPositionNotHeld)

	stocks, _ := dump(t)
	require.Equal(t, 100.0, stocks[0].AvailableShares)
}

func TestRemoveForceLiquidatesHoldings(t *testing.T) {
	registry, ledger, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 10),
		listedStock("Tesla Inc", "TSLA", 100, 20))
	ctx := context.Background()

	require.NoError(t, ledger.Register(ctx, "Alice", "Smith", "alice", "hunter22", "USD"))
	auth, err := ledger.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(ctx, auth.GUID, 1000))
	require.NoError(t, registry.Purchase(ctx, auth.GUID, "AAPL", 5))

	require.NoError(t, registry.Remove(ctx, "aapl"))

	stocks, users := dump(t)
	require.Len(t, stocks, 1)
	require.Equal(t, "TSLA", stocks[0].Symbol)
	require.Empty(t, users[0].Shares, "holdings in the delisted stock are force-sold")
	require.Equal(t, 1000.0, users[0].AvailableFunds, "proceeds at the last known price")
}

func TestRemoveUnknownSymbol(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1})
	require.ErrorIs(t, registry.Remove(context.Background(), "NOPE"), ErrStockNotFound)
}

func TestModifyAppliesOnlySuppliedFields(t *testing.T) {
	registry, _, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180))
	ctx := context.Background()

	newShares := 55.0
	require.NoError(t, registry.Modify(ctx, "aapl", StockChanges{
		Name:            "Apple Incorporated",
		AvailableShares: &newShares,
	}))

	stocks, _ := dump(t)
	require.Equal(t, "Apple Incorporated", stocks[0].Name)
	require.Equal(t, "AAPL", stocks[0].Symbol)
	require.Equal(t, 55.0, stocks[0].AvailableShares)
}

func TestModifyRenamesSymbolUnlessTaken(t *testing.T) {
	registry, _, dump := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180),
		listedStock("Tesla Inc", "TSLA", 100, 250))
	ctx := context.Background()

	require.ErrorIs(t, registry.Modify(ctx, "AAPL", StockChanges{NewSymbol: "tsla"}), ErrStockAlreadyExists)

	require.NoError(t, registry.Modify(ctx, "AAPL", StockChanges{NewSymbol: "appl"}))
	stocks, _ := dump(t)
	require.Equal(t, "APPL", stocks[0].Symbol)
}

func TestModifyWithNoChangesFails(t *testing.T) {
	registry, _, _ := setupRegistry(t, stubFeed{}, stubConverter{rate: 1},
		listedStock("Apple Inc", "AAPL", 100, 180))

	require.ErrorIs(t, registry.Modify(context.Background(), "AAPL", StockChanges{}), ErrNoChanges)
	require.ErrorIs(t, registry.Modify(context.Background(), "MSFT", StockChanges{Name: "x"}), ErrStockNotFound)
}
