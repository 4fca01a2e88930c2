package repository

import (
	"context"

	"github.com/utafrali/wishlist-service/internal/domain"
)

// ListFilter narrows and orders a wishlist listing. Page is zero-based.
type ListFilter struct {
	// OwnerEmail restricts the listing to one owner when non-empty.
	OwnerEmail string
	SortBy     domain.SortBy
	SortOrder  domain.SortOrder
	Page       int
	Size       int
}

// Offset returns the number of rows to skip.
func (f ListFilter) Offset() int {
	return f.Page * f.Size
}

// WishlistRepository defines the interface for wishlist persistence operations.
type WishlistRepository interface {
	// Create inserts a new wishlist. It fails with an already-exists error
	// when the composite key is taken.
	Create(ctx context.Context, wishlist *domain.Wishlist) error

	// GetByKey retrieves a wishlist by owner email and name.
	GetByKey(ctx context.Context, email, name string) (*domain.Wishlist, error)

	// AppendProduct atomically appends a product reference to the wishlist.
	AppendProduct(ctx context.Context, email, name string, ref domain.ProductRef) error

	// List returns one page of wishlists and the total number of matches.
	List(ctx context.Context, filter ListFilter) ([]domain.Wishlist, int, error)

	// DeleteAll removes every wishlist.
	DeleteAll(ctx context.Context) error

	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}
