package repository

import (
	"context"

	"sharebrokering/internal/domain"
)

// UserStore persists the complete user collection as a single snapshot,
// with the same locking contract as StockStore. The stock and user files
// are locked independently; an operation spanning both is only best-effort
// consistent.
type UserStore interface {
	View(ctx context.Context, fn func(users []domain.User) error) error
	Update(ctx context.Context, fn func(users *[]domain.User) (save bool, err error)) error
}
