package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sharebrokering/internal/currency"
	"sharebrokering/internal/domain"
	"sharebrokering/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// It is returned for both an unknown username and a wrong password so the
	// two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering a username that is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the given GUID.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientFunds is returned when a purchase or withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrPositionNotHeld is returned when selling shares the user does not hold.
	ErrPositionNotHeld = errors.New("position not held")
)

// AuthResult carries the outcome of a successful login.
type AuthResult struct {
	GUID string
	Role domain.Role
}

// Funds is a view of a user's available balance.
type Funds struct {
	AvailableFunds float64
	Currency       string
}

// UserService manages the user ledger: registration, authentication, funds
// and share positions. Every operation performs a full load-mutate-save
// round trip against the user store.
type UserService interface {
	Register(ctx context.Context, firstName, lastName, username, password, currencyCode string) error
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	GetFunds(ctx context.Context, guid string) (*Funds, error)
	Deposit(ctx context.Context, guid string, amount float64) error
	Withdraw(ctx context.Context, guid string, amount float64) error
	AddPosition(ctx context.Context, guid, symbol string, price domain.SharePrice, quantity float64) error
	RemovePosition(ctx context.Context, guid, symbol string, price domain.SharePrice, quantity float64) error
	LiquidateAll(ctx context.Context, symbol string, price domain.SharePrice) error
	UserStocks(ctx context.Context, guid string) ([]domain.UserStock, error)
}

type userService struct {
	users     repository.UserStore
	stocks    repository.StockStore
	converter currency.Converter
	logger    *logrus.Logger
}

func NewUserService(users repository.UserStore, stocks repository.StockStore, converter currency.Converter, logger *logrus.Logger) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:     users,
		stocks:    stocks,
		converter: converter,
		logger:    logger,
	}
}

func (s *userService) Register(ctx context.Context, firstName, lastName, username, password, currencyCode string) error {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	username = strings.TrimSpace(username)
	currencyCode = strings.TrimSpace(currencyCode)

	if firstName == "" || lastName == "" {
		return errors.New("first and last name are required")
	}
	if username == "" {
		return errors.New("username is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	if currencyCode == "" {
		return errors.New("currency is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		for i := range *users {
			if strings.EqualFold((*users)[i].Username, username) {
				return false, ErrUserAlreadyExists
			}
		}

		*users = append(*users, domain.User{
			GUID:           uuid.NewString(),
			FirstName:      firstName,
			LastName:       lastName,
			Username:       username,
			PasswordHash:   string(hash),
			Role:           domain.RoleUser,
			Currency:       strings.ToUpper(currencyCode),
			AvailableFunds: 0,
		})
		return true, nil
	})
}

func (s *userService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var result *AuthResult
	err := s.users.View(ctx, func(users []domain.User) error {
		for i := range users {
			if !strings.EqualFold(users[i].Username, username) {
				continue
			}
			if bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(password)) != nil {
				return ErrInvalidCredentials
			}
			result = &AuthResult{GUID: users[i].GUID, Role: users[i].Role}
			return nil
		}
		return ErrInvalidCredentials
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *userService) GetFunds(ctx context.Context, guid string) (*Funds, error) {
	if strings.TrimSpace(guid) == "" {
		return nil, ErrUserNotFound
	}

	var funds *Funds
	err := s.users.View(ctx, func(users []domain.User) error {
		for i := range users {
			if users[i].GUIDEquals(guid) {
				funds = &Funds{
					AvailableFunds: users[i].AvailableFunds,
					Currency:       users[i].Currency,
				}
				return nil
			}
		}
		return ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return funds, nil
}

func (s *userService) Deposit(ctx context.Context, guid string, amount float64) error {
	if amount <= 0 {
		return errors.New("deposit amount must be positive")
	}

	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		for i := range *users {
			if (*users)[i].GUIDEquals(guid) {
				(*users)[i].AvailableFunds += amount
				return true, nil
			}
		}
		return false, ErrUserNotFound
	})
}

func (s *userService) Withdraw(ctx context.Context, guid string, amount float64) error {
	if amount <= 0 {
		return errors.New("withdrawal amount must be positive")
	}

	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		for i := range *users {
			if !(*users)[i].GUIDEquals(guid) {
				continue
			}
			if amount > (*users)[i].AvailableFunds {
				return false, ErrInsufficientFunds
			}
			(*users)[i].AvailableFunds -= amount
			return true, nil
		}
		return false, ErrUserNotFound
	})
}

// AddPosition charges the user for quantity shares at the given listing
// price and merges them into any existing position for the symbol. The cost
// is converted into the user's account currency first; a conversion failure
// aborts without touching funds or positions.
func (s *userService) AddPosition(ctx context.Context, guid, symbol string, price domain.SharePrice, quantity float64) error {
	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		for i := range *users {
			user := &(*users)[i]
			if !user.GUIDEquals(guid) {
				continue
			}

			cost, err := s.converter.Convert(ctx, price.Currency, user.Currency, price.Price*quantity)
			if err != nil {
				return false, fmt.Errorf("convert purchase cost: %w", err)
			}
			if cost > user.AvailableFunds {
				return false, ErrInsufficientFunds
			}
			user.AvailableFunds -= cost

			if idx := user.FindShare(symbol); idx >= 0 {
				user.Shares[idx].Quantity += quantity
				user.Shares[idx].PurchaseValue += cost
			} else {
				user.Shares = append(user.Shares, domain.Share{
					StockSymbol:   symbol,
					Quantity:      quantity,
					PurchaseValue: cost,
				})
			}
			return true, nil
		}
		return false, ErrUserNotFound
	})
}

// RemovePosition credits the user with the proceeds of selling quantity
// shares at the given listing price and reduces the position, dropping it
// entirely when the quantity reaches exactly zero.
func (s *userService) RemovePosition(ctx context.Context, guid, symbol string, price domain.SharePrice, quantity float64) error {
	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		for i := range *users {
			user := &(*users)[i]
			if !user.GUIDEquals(guid) {
				continue
			}

			idx := user.FindShare(symbol)
			if idx < 0 || user.Shares[idx].Quantity < quantity {
				return false, ErrPositionNotHeld
			}

			proceeds, err := s.converter.Convert(ctx, price.Currency, user.Currency, price.Price*quantity)
			if err != nil {
				return false, fmt.Errorf("convert sale proceeds: %w", err)
			}
			user.AvailableFunds += proceeds

			if user.Shares[idx].Quantity == quantity {
				user.Shares = append(user.Shares[:idx], user.Shares[idx+1:]...)
			} else {
				user.Shares[idx].Quantity -= quantity
				user.Shares[idx].PurchaseValue -= proceeds
			}
			return true, nil
		}
		return false, ErrUserNotFound
	})
}

// LiquidateAll force-sells every user's position in the given symbol at its
// last known price. Per-user failures are logged and skipped; the cleanup is
// best effort, not transactional.
func (s *userService) LiquidateAll(ctx context.Context, symbol string, price domain.SharePrice) error {
	return s.users.Update(ctx, func(users *[]domain.User) (bool, error) {
		changed := false
		for i := range *users {
			user := &(*users)[i]
			idx := user.FindShare(symbol)
			if idx < 0 {
				continue
			}

			proceeds, err := s.converter.Convert(ctx, price.Currency, user.Currency, price.Price*user.Shares[idx].Quantity)
			if err != nil {
				s.logger.WithError(err).Warnf("force sell %s for user %s failed", symbol, user.GUID)
				continue
			}
			user.AvailableFunds += proceeds
			user.Shares = append(user.Shares[:idx], user.Shares[idx+1:]...)
			changed = true
		}
		return changed, nil
	})
}

// UserStocks joins a user's positions against the stock registry, returning
// listing details alongside the user's quantity and cost basis.
func (s *userService) UserStocks(ctx context.Context, guid string) ([]domain.UserStock, error) {
	var (
		shares      []domain.Share
		accountCurr string
		found       bool
	)
	err := s.users.View(ctx, func(users []domain.User) error {
		for i := range users {
			if users[i].GUIDEquals(guid) {
				shares = append([]domain.Share(nil), users[i].Shares...)
				accountCurr = users[i].Currency
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	if len(shares) == 0 {
		return []domain.UserStock{}, nil
	}

	result := make([]domain.UserStock, 0, len(shares))
	err = s.stocks.View(ctx, func(stocks []domain.Stock) error {
		for _, share := range shares {
			for i := range stocks {
				if !stocks[i].SymbolEquals(share.StockSymbol) {
					continue
				}
				result = append(result, domain.UserStock{
					StockName:            stocks[i].Name,
					StockSymbol:          stocks[i].Symbol,
					AvailableShares:      stocks[i].AvailableShares,
					Price:                stocks[i].Price,
					UserPurchaseCurrency: accountCurr,
					UserQuantity:         share.Quantity,
					UserPurchaseValue:    share.PurchaseValue,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
