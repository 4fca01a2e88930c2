package domain

import (
	"slices"
	"time"
)

// KeyDelimiter separates the owner email from the wishlist name in a
// composite key.
const KeyDelimiter = "#"

// NoRating is reported when the review service has no data for a product.
const NoRating = -1.0

// User is the owner of a wishlist as returned by the user service. Only the
// email is interpreted here.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Product holds full product details from the product service. Rating is
// attached by enrichment and never stored.
type Product struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name,omitempty"`
	Price     float64  `json:"price"`
	Rating    *float64 `json:"rating,omitempty"`
}

// ProductRef is the stored reference to a product inside a wishlist.
type ProductRef struct {
	ProductID string `json:"product_id"`
}

// ProductRating is the average rating reported by the review service.
type ProductRating struct {
	ProductID string  `json:"product_id"`
	Rating    float64 `json:"rating"`
}

// Wishlist is the stored aggregate, keyed by (owner email, name).
type Wishlist struct {
	User      User         `json:"user"`
	Name      string       `json:"name"`
	Products  []ProductRef `json:"products"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Key returns the composite key of the wishlist.
func (w *Wishlist) Key() string {
	return Key(w.User.Email, w.Name)
}

// Contains reports whether the wishlist references productID.
func (w *Wishlist) Contains(productID string) bool {
	return slices.ContainsFunc(w.Products, func(p ProductRef) bool {
		return p.ProductID == productID
	})
}

// WishlistDetails is a wishlist with its product references resolved to full
// product details.
type WishlistDetails struct {
	User      User      `json:"user"`
	Name      string    `json:"name"`
	Products  []Product `json:"products"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWishlistDetails copies the wishlist header and attaches products.
func NewWishlistDetails(w *Wishlist, products []Product) WishlistDetails {
	if products == nil {
		products = []Product{}
	}
	return WishlistDetails{
		User:      w.User,
		Name:      w.Name,
		Products:  products,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// Key builds the composite key for an owner email and wishlist name.
func Key(email, name string) string {
	return email + KeyDelimiter + name
}
