package collaborator

import (
	"context"

	"github.com/utafrali/wishlist-service/internal/domain"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
)

const userService = "user"

// UserClient looks up users by email.
type UserClient struct {
	http    HTTPGetter
	baseURL string
}

// NewUserClient creates a client for GET {baseURL}/{email}.
func NewUserClient(client HTTPGetter, baseURL string) *UserClient {
	return &UserClient{http: client, baseURL: baseURL}
}

// GetUser returns the user registered under email.
func (c *UserClient) GetUser(ctx context.Context, email string) (*domain.User, error) {
	payload, found, err := fetch(ctx, c.http, userService, endpoint(c.baseURL, email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound(userService, email)
	}

	var u domain.User
	if err := decode(userService, payload, &u); err != nil {
		return nil, err
	}
	if u.Email == "" {
		u.Email = email
	}
	return &u, nil
}
