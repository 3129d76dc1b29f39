package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"sharebrokering/internal/domain"
	"sharebrokering/internal/pricefeed"
	"sharebrokering/internal/repository"
)

var (
	// ErrStockNotFound is returned when no stock matches the given symbol.
	ErrStockNotFound = errors.New("stock not found")
	// ErrStockAlreadyExists is returned when adding or renaming to a symbol that is taken.
	ErrStockAlreadyExists = errors.New("stock already exists")
	// ErrInsufficientShares is returned when a purchase exceeds the available shares.
	ErrInsufficientShares = errors.New("insufficient available shares")
	// ErrNoChanges is returned when a modify request supplies nothing to change.
	ErrNoChanges = errors.New("no changes supplied")
)

// SortKey selects the field search results are ordered by. The set is
// closed; unknown values fall back to SortBySymbol.
type SortKey string

const (
	SortByName     SortKey = "stockName"
	SortBySymbol   SortKey = "stockSymbol"
	SortByCurrency SortKey = "shareCurrency"
	SortByPrice    SortKey = "sharePrice"
)

// SortOrder is "asc" or "desc". The default order for searches is
// descending.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// PriceFilter selects how a search compares stock prices against the
// supplied reference price.
type PriceFilter string

const (
	PriceFilterNone           PriceFilter = ""
	PriceFilterLessOrEqual    PriceFilter = "lessOrEqual"
	PriceFilterEqual          PriceFilter = "equal"
	PriceFilterGreaterOrEqual PriceFilter = "greaterOrEqual"
)

// SearchCriteria bundles the optional filters and ordering of a stock
// search. Empty string filters impose no constraint; the price filter only
// applies when Price is non-negative.
type SearchCriteria struct {
	Name        string
	Symbol      string
	Currency    string
	PriceFilter PriceFilter
	Price       float64
	SortBy      SortKey
	Order       SortOrder
}

// StockChanges carries the optional fields of a modify request. Nil or
// empty fields are left untouched.
type StockChanges struct {
	Name            string
	NewSymbol       string
	AvailableShares *float64
}

// StockService manages the stock registry and brokers purchases and sales
// between the registry and the user ledger.
type StockService interface {
	GetAll(ctx context.Context) ([]domain.Stock, error)
	GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error)
	Search(ctx context.Context, criteria SearchCriteria) ([]domain.Stock, error)
	Purchase(ctx context.Context, guid, symbol string, quantity float64) error
	Sell(ctx context.Context, guid, symbol string, quantity float64) error
	Add(ctx context.Context, name, symbol string, availableShares float64) error
	Remove(ctx context.Context, symbol string) error
	Modify(ctx context.Context, symbol string, changes StockChanges) error
}

type stockService struct {
	stocks repository.StockStore
	ledger UserService
	feed   pricefeed.Client
	logger *logrus.Logger
}

func NewStockService(stocks repository.StockStore, ledger UserService, feed pricefeed.Client, logger *logrus.Logger) StockService {
	if logger == nil {
		logger = logrus.New()
	}
	return &stockService{
		stocks: stocks,
		ledger: ledger,
		feed:   feed,
		logger: logger,
	}
}

func (s *stockService) GetAll(ctx context.Context) ([]domain.Stock, error) {
	var result []domain.Stock
	err := s.stocks.View(ctx, func(stocks []domain.Stock) error {
		result = append([]domain.Stock(nil), stocks...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *stockService) GetBySymbol(ctx context.Context, symbol string) (*domain.Stock, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, ErrStockNotFound
	}

	var result *domain.Stock
	err := s.stocks.View(ctx, func(stocks []domain.Stock) error {
		for i := range stocks {
			if stocks[i].SymbolEquals(symbol) {
				stock := stocks[i]
				result = &stock
				return nil
			}
		}
		return ErrStockNotFound
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *stockService) Search(ctx context.Context, criteria SearchCriteria) ([]domain.Stock, error) {
	if criteria.SortBy == "" {
		criteria.SortBy = SortBySymbol
	}
	if criteria.Order == "" {
		criteria.Order = SortDescending
	}

	var result []domain.Stock
	err := s.stocks.View(ctx, func(stocks []domain.Stock) error {
		for i := range stocks {
			if matchesCriteria(stocks[i], criteria) {
				result = append(result, stocks[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortStocks(result, criteria.SortBy, criteria.Order)
	return result, nil
}

func matchesCriteria(stock domain.Stock, c SearchCriteria) bool {
	if c.Name != "" && !containsFold(stock.Name, c.Name) {
		return false
	}
	if c.Symbol != "" && !containsFold(stock.Symbol, c.Symbol) {
		return false
	}
	if c.Currency != "" && !strings.EqualFold(stock.Price.Currency, c.Currency) {
		return false
	}
	if c.Price >= 0 {
		switch c.PriceFilter {
		case PriceFilterLessOrEqual:
			return stock.Price.Price <= c.Price
		case PriceFilterEqual:
			return stock.Price.Price == c.Price
		case PriceFilterGreaterOrEqual:
			return stock.Price.Price >= c.Price
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// stockComparators maps each sort key to an explicit comparison. Unknown
// keys sort by symbol.
var stockComparators = map[SortKey]func(a, b domain.Stock) int{
	SortByName:     func(a, b domain.Stock) int { return strings.Compare(a.Name, b.Name) },
	SortBySymbol:   func(a, b domain.Stock) int { return strings.Compare(a.Symbol, b.Symbol) },
	SortByCurrency: func(a, b domain.Stock) int { return strings.Compare(a.Price.Currency, b.Price.Currency) },
	SortByPrice:    func(a, b domain.Stock) int { return cmp.Compare(a.Price.Price, b.Price.Price) },
}

func sortStocks(stocks []domain.Stock, key SortKey, order SortOrder) {
	compare, ok := stockComparators[key]
	if !ok {
		compare = stockComparators[SortBySymbol]
	}
	sort.SliceStable(stocks, func(i, j int) bool {
		if order == SortDescending {
			return compare(stocks[i], stocks[j]) > 0
		}
		return compare(stocks[i], stocks[j]) < 0
	})
}

// Purchase buys quantity shares of symbol for the given user: the user is
// charged at the current listing price and the registry's available share
// count is reduced.
func (s *stockService) Purchase(ctx context.Context, guid, symbol string, quantity float64) error {
	if strings.TrimSpace(guid) == "" || strings.TrimSpace(symbol) == "" {
		return errors.New("user and symbol are required")
	}
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	return s.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			stock := &(*stocks)[i]
			if !stock.SymbolEquals(symbol) {
				continue
			}
			if stock.AvailableShares < quantity {
				return false, ErrInsufficientShares
			}
			if err := s.ledger.AddPosition(ctx, guid, stock.Symbol, stock.Price, quantity); err != nil {
				return false, err
			}
			stock.AvailableShares -= quantity
			return true, nil
		}
		return false, ErrStockNotFound
	})
}

// Sell sells quantity shares of symbol held by the given user: proceeds are
// credited to the user and the registry's available share count grows. There
// is no upper bound on available shares.
func (s *stockService) Sell(ctx context.Context, guid, symbol string, quantity float64) error {
	if strings.TrimSpace(guid) == "" || strings.TrimSpace(symbol) == "" {
		return errors.New("user and symbol are required")
	}
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	return s.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			stock := &(*stocks)[i]
			if !stock.SymbolEquals(symbol) {
				continue
			}
			if err := s.ledger.RemovePosition(ctx, guid, stock.Symbol, stock.Price, quantity); err != nil {
				return false, err
			}
			stock.AvailableShares += quantity
			return true, nil
		}
		return false, ErrStockNotFound
	})
}

// Add lists a new stock. The initial price is fetched from the price feed;
// a feed failure aborts the addition. The collection stays ordered by
// company name.
func (s *stockService) Add(ctx context.Context, name, symbol string, availableShares float64) error {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	if name == "" || symbol == "" {
		return errors.New("name and symbol are required")
	}
	if availableShares < 0 {
		return errors.New("available shares must not be negative")
	}

	return s.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			if (*stocks)[i].SymbolEquals(symbol) {
				return false, ErrStockAlreadyExists
			}
		}

		quote, err := s.feed.GetSharePrice(ctx, symbol)
		if err != nil {
			return false, fmt.Errorf("fetch price for new stock: %w", err)
		}

		*stocks = append(*stocks, domain.Stock{
			Name:            name,
			Symbol:          strings.ToUpper(symbol),
			AvailableShares: availableShares,
			Price: domain.SharePrice{
				Currency: quote.Currency,
				Price:    quote.Price,
				Updated:  quote.Updated,
			},
		})
		sort.SliceStable(*stocks, func(i, j int) bool {
			return (*stocks)[i].Name < (*stocks)[j].Name
		})
		return true, nil
	})
}

// Remove delists the stock and force-liquidates every user position in it
// at the last known price. A liquidation failure is logged but does not
// block the removal.
func (s *stockService) Remove(ctx context.Context, symbol string) error {
	if strings.TrimSpace(symbol) == "" {
		return ErrStockNotFound
	}

	return s.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			if !(*stocks)[i].SymbolEquals(symbol) {
				continue
			}
			removed := (*stocks)[i]
			*stocks = append((*stocks)[:i], (*stocks)[i+1:]...)

			if err := s.ledger.LiquidateAll(ctx, removed.Symbol, removed.Price); err != nil {
				s.logger.WithError(err).Errorf("force sell positions in delisted stock %s", removed.Symbol)
			}
			return true, nil
		}
		return false, ErrStockNotFound
	})
}

// Modify applies the supplied changes to the stock. Absent fields are left
// alone; a request that changes nothing fails with ErrNoChanges.
func (s *stockService) Modify(ctx context.Context, symbol string, changes StockChanges) error {
	if strings.TrimSpace(symbol) == "" {
		return ErrStockNotFound
	}
	if changes.AvailableShares != nil && *changes.AvailableShares < 0 {
		return errors.New("available shares must not be negative")
	}

	newName := strings.TrimSpace(changes.Name)
	newSymbol := strings.TrimSpace(changes.NewSymbol)

	return s.stocks.Update(ctx, func(stocks *[]domain.Stock) (bool, error) {
		for i := range *stocks {
			stock := &(*stocks)[i]
			if !stock.SymbolEquals(symbol) {
				continue
			}

			changed := false
			if newSymbol != "" {
				for j := range *stocks {
					if j != i && (*stocks)[j].SymbolEquals(newSymbol) {
						return false, ErrStockAlreadyExists
					}
				}
				stock.Symbol = strings.ToUpper(newSymbol)
				changed = true
			}
			if newName != "" {
				stock.Name = newName
				changed = true
			}
			if changes.AvailableShares != nil {
				stock.AvailableShares = *changes.AvailableShares
				changed = true
			}

			if !changed {
				return false, ErrNoChanges
			}
			return true, nil
		}
		return false, ErrStockNotFound
	})
}
