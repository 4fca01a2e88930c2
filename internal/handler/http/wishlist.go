package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/wishlist-service/internal/domain"
	"github.com/utafrali/wishlist-service/internal/service"
	"github.com/utafrali/wishlist-service/pkg/httputil"
	"github.com/utafrali/wishlist-service/pkg/pagination"
	"github.com/utafrali/wishlist-service/pkg/validator"
)

// WishlistService is the set of operations the handler exposes over HTTP.
type WishlistService interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.Wishlist, error)
	GetWishlistByID(ctx context.Context, email, name string) (*domain.WishlistDetails, error)
	AddProduct(ctx context.Context, email, name string, ref domain.ProductRef) error
	GetAll(ctx context.Context, q domain.Query) ([]domain.WishlistDetails, int, error)
	DeleteAll(ctx context.Context) error
}

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	service WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// OwnerRequest identifies the wishlist owner in a create request.
type OwnerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CreateWishlistRequest is the JSON body for creating a wishlist.
type CreateWishlistRequest struct {
	User OwnerRequest `json:"user"`
	Name string       `json:"name" validate:"required,max=255,excludes=#"`
}

// AddProductRequest is the JSON body for adding a product to a wishlist.
type AddProductRequest struct {
	ProductID string `json:"product_id" validate:"required,max=255"`
}

// --- Handlers ---

// Create handles POST /api/v1/wishlists
func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWishlistRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wishlist, err := h.service.Create(r.Context(), service.CreateInput{
		User: domain.User{
			Email:     req.User.Email,
			FirstName: req.User.FirstName,
			LastName:  req.User.LastName,
		},
		Name: req.Name,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: wishlist})
}

// Get handles GET /api/v1/wishlists/{email}/{name}
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	email, name, err := wishlistKey(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	details, err := h.service.GetWishlistByID(r.Context(), email, name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: details})
}

// AddProduct handles PUT /api/v1/wishlists/{email}/{name}/products
func (h *WishlistHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	email, name, err := wishlistKey(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := h.service.AddProduct(r.Context(), email, name, domain.ProductRef{ProductID: req.ProductID}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/wishlists
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	wishlists, total, err := h.service.GetAll(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(wishlists, total, q.Page, q.Size))
}

// DeleteAll handles DELETE /api/v1/wishlists
func (h *WishlistHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// wishlistKey reads the decoded owner email and wishlist name from the path.
func wishlistKey(r *http.Request) (email, name string, err error) {
	if email, err = httputil.PathParam(r, "email"); err != nil {
		return "", "", err
	}
	if name, err = httputil.PathParam(r, "name"); err != nil {
		return "", "", err
	}
	return email, name, nil
}

// parseQuery reads the listing parameters. Out-of-range page and size fall
// back to the pagination defaults; unknown enum values are rejected.
func parseQuery(r *http.Request) (domain.Query, error) {
	values := r.URL.Query()

	filterBy, err := domain.ParseFilterBy(values.Get("filterBy"))
	if err != nil {
		return domain.Query{}, err
	}
	sortBy, err := domain.ParseSortBy(values.Get("sortBy"))
	if err != nil {
		return domain.Query{}, err
	}
	sortOrder, err := domain.ParseSortOrder(values.Get("sortOrder"))
	if err != nil {
		return domain.Query{}, err
	}

	params := pagination.FromRequest(r)
	return domain.Query{
		FilterBy:    filterBy,
		FilterValue: values.Get("filterValue"),
		SortBy:      sortBy,
		SortOrder:   sortOrder,
		Page:        params.Page,
		Size:        params.Size,
	}, nil
}
