package collaborator

import (
	"context"

	"github.com/utafrali/wishlist-service/internal/domain"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
)

const productService = "product"

// ProductClient fetches product details.
type ProductClient struct {
	http    HTTPGetter
	baseURL string
}

// NewProductClient creates a client for GET {baseURL}/products/{productId}.
func NewProductClient(client HTTPGetter, baseURL string) *ProductClient {
	return &ProductClient{http: client, baseURL: baseURL}
}

// GetProduct returns the current details of productID.
func (c *ProductClient) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	payload, found, err := fetch(ctx, c.http, productService, endpoint(c.baseURL, "products", productID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound(productService, productID)
	}

	var p domain.Product
	if err := decode(productService, payload, &p); err != nil {
		return nil, err
	}
	if p.ProductID == "" {
		p.ProductID = productID
	}
	// Ratings come only from the review service.
	p.Rating = nil
	return &p, nil
}
