package repository

import (
	"context"

	"sharebrokering/internal/domain"
)

// StockStore persists the complete stock collection as a single snapshot.
//
// View and Update run their callback while holding the store's lock, so a
// whole load-mutate-save sequence is mutually exclusive with every other
// operation on the same store. Callers must not retain the slice past the
// callback.
type StockStore interface {
	// View loads the collection and passes it to fn for read-only access.
	View(ctx context.Context, fn func(stocks []domain.Stock) error) error
	// Update loads the collection, lets fn mutate it in place, and persists
	// the result when fn returns save=true. When fn returns an error nothing
	// is written.
	Update(ctx context.Context, fn func(stocks *[]domain.Stock) (save bool, err error)) error
}
