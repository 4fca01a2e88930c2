package collaborator

import (
	"context"

	"github.com/utafrali/wishlist-service/internal/domain"
)

const reviewService = "review"

// ReviewClient fetches average product ratings.
type ReviewClient struct {
	http    HTTPGetter
	baseURL string
}

// NewReviewClient creates a client for GET {baseURL}/average_rating/{productId}.
func NewReviewClient(client HTTPGetter, baseURL string) *ReviewClient {
	return &ReviewClient{http: client, baseURL: baseURL}
}

// GetAverageRating returns the average rating of productID, or domain.NoRating
// when the review service has none.
func (c *ReviewClient) GetAverageRating(ctx context.Context, productID string) (*domain.ProductRating, error) {
	noData := &domain.ProductRating{ProductID: productID, Rating: domain.NoRating}

	payload, found, err := fetch(ctx, c.http, reviewService, endpoint(c.baseURL, "average_rating", productID))
	if err != nil {
		return nil, err
	}
	if !found {
		return noData, nil
	}

	var body struct {
		ProductID string   `json:"product_id"`
		Rating    *float64 `json:"rating"`
	}
	if err := decode(reviewService, payload, &body); err != nil {
		return nil, err
	}
	if body.Rating == nil {
		return noData, nil
	}
	return &domain.ProductRating{ProductID: productID, Rating: *body.Rating}, nil
}
