package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/wishlist-service/internal/domain"
	"github.com/utafrali/wishlist-service/internal/service"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
	"github.com/utafrali/wishlist-service/pkg/health"
	"github.com/utafrali/wishlist-service/pkg/httputil"
	"github.com/utafrali/wishlist-service/pkg/middleware"
)

// ============================================================================
// Mock Service
// ============================================================================

type mockWishlistService struct {
	mock.Mock
}

func (m *mockWishlistService) Create(ctx context.Context, input service.CreateInput) (*domain.Wishlist, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wishlist), args.Error(1)
}

func (m *mockWishlistService) GetWishlistByID(ctx context.Context, email, name string) (*domain.WishlistDetails, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WishlistDetails), args.Error(1)
}

func (m *mockWishlistService) AddProduct(ctx context.Context, email, name string, ref domain.ProductRef) error {
	args := m.Called(ctx, email, name, ref)
	return args.Error(0)
}

func (m *mockWishlistService) GetAll(ctx context.Context, q domain.Query) ([]domain.WishlistDetails, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.WishlistDetails), args.Int(1), args.Error(2)
}

func (m *mockWishlistService) DeleteAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ============================================================================
// Test Helpers
// ============================================================================

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(svc WishlistService) http.Handler {
	return NewRouter(svc, health.NewHandler(), handlerTestLogger(), RouterConfig{
		CORS: middleware.DefaultCORSConfig(),
	})
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

var anyCtx = mock.Anything

// ============================================================================
// POST /api/v1/wishlists
// ============================================================================

func TestCreateWishlist_Success(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	created := &domain.Wishlist{
		User:      domain.User{Email: "a@x.com", FirstName: "Ada"},
		Name:      "gifts",
		Products:  []domain.ProductRef{},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	svc.On("Create", anyCtx, service.CreateInput{
		User: domain.User{Email: "a@x.com", FirstName: "Ada"},
		Name: "gifts",
	}).Return(created, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/wishlists", map[string]any{
		"user": map[string]string{"email": "a@x.com", "first_name": "Ada"},
		"name": "gifts",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Wishlist `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "gifts", resp.Data.Name)
	assert.Equal(t, "a@x.com", resp.Data.User.Email)
	assert.Empty(t, resp.Data.Products)
	svc.AssertExpectations(t)
}

func TestCreateWishlist_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing email", map[string]any{"user": map[string]string{}, "name": "gifts"}, "user.email"},
		{"bad email", map[string]any{"user": map[string]string{"email": "nope"}, "name": "gifts"}, "user.email"},
		{"missing name", map[string]any{"user": map[string]string{"email": "a@x.com"}}, "name"},
		{"delimiter in name", map[string]any{"user": map[string]string{"email": "a@x.com"}, "name": "a#b"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockWishlistService)
			router := newTestRouter(svc)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/wishlists", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errResp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
			assert.Contains(t, errResp.Fields, tt.field)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateWishlist_MalformedJSON(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/wishlists", `{"user":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestCreateWishlist_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown user", apperrors.NotFound("user", "a@x.com"), http.StatusNotFound, "NOT_FOUND"},
		{"duplicate", apperrors.AlreadyExists("wishlist", "key", "a@x.com#gifts"), http.StatusConflict, "ALREADY_EXISTS"},
		{"user service down", apperrors.Transport("user", errors.New("dial tcp: refused")), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockWishlistService)
			router := newTestRouter(svc)
			svc.On("Create", anyCtx, mock.Anything).Return(nil, tt.err)

			rec := doRequest(t, router, http.MethodPost, "/api/v1/wishlists", map[string]any{
				"user": map[string]string{"email": "a@x.com"},
				"name": "gifts",
			})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

// ============================================================================
// GET /api/v1/wishlists/{email}/{name}
// ============================================================================

func TestGetWishlist_Success(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	rating := 4.5
	svc.On("GetWishlistByID", anyCtx, "a@x.com", "gifts").Return(&domain.WishlistDetails{
		User:     domain.User{Email: "a@x.com"},
		Name:     "gifts",
		Products: []domain.Product{{ProductID: "p1", Name: "Lamp", Price: 20, Rating: &rating}},
	}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists/a@x.com/gifts", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data domain.WishlistDetails `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data.Products, 1)
	assert.Equal(t, "p1", resp.Data.Products[0].ProductID)
	require.NotNil(t, resp.Data.Products[0].Rating)
	assert.InDelta(t, 4.5, *resp.Data.Products[0].Rating, 0.0001)
	svc.AssertExpectations(t)
}

func TestGetWishlist_EscapedPathSegments(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		email string
		wName string
	}{
		{"encoded space", "/api/v1/wishlists/a@x.com/birthday%20gifts", "a@x.com", "birthday gifts"},
		{"encoded at sign", "/api/v1/wishlists/a%40x.com/gifts", "a@x.com", "gifts"},
		{"encoded slash in name", "/api/v1/wishlists/a%40x.com/q1%2Fq2", "a@x.com", "q1/q2"},
		{"literal percent", "/api/v1/wishlists/a@x.com/100%25", "a@x.com", "100%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockWishlistService)
			router := newTestRouter(svc)

			svc.On("GetWishlistByID", anyCtx, tt.email, tt.wName).
				Return(&domain.WishlistDetails{Name: tt.wName, Products: []domain.Product{}}, nil)

			rec := doRequest(t, router, http.MethodGet, tt.path, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAddProduct_EscapedPathSegments(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("AddProduct", anyCtx, "a@x.com", "q1/q2", domain.ProductRef{ProductID: "p1"}).Return(nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/wishlists/a%40x.com/q1%2Fq2/products",
		map[string]string{"product_id": "p1"})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetWishlist_NotFound(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("GetWishlistByID", anyCtx, "a@x.com", "missing").
		Return(nil, apperrors.NotFound("wishlist", "a@x.com#missing"))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists/a@x.com/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

// ============================================================================
// PUT /api/v1/wishlists/{email}/{name}/products
// ============================================================================

func TestAddProduct_Success(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("AddProduct", anyCtx, "a@x.com", "gifts", domain.ProductRef{ProductID: "p1"}).Return(nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/wishlists/a@x.com/gifts/products",
		map[string]string{"product_id": "p1"})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestAddProduct_MissingProductID(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/wishlists/a@x.com/gifts/products", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	assert.Contains(t, errResp.Fields, "product_id")
	svc.AssertNotCalled(t, "AddProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddProduct_UnknownProduct(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("AddProduct", anyCtx, "a@x.com", "gifts", domain.ProductRef{ProductID: "nope"}).
		Return(apperrors.NotFound("product", "nope"))

	rec := doRequest(t, router, http.MethodPut, "/api/v1/wishlists/a@x.com/gifts/products",
		map[string]string{"product_id": "nope"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddProduct_ConcurrentModification(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("AddProduct", anyCtx, "a@x.com", "gifts", domain.ProductRef{ProductID: "p1"}).
		Return(apperrors.Conflict("wishlist a@x.com#gifts was modified concurrently"))

	rec := doRequest(t, router, http.MethodPut, "/api/v1/wishlists/a@x.com/gifts/products",
		map[string]string{"product_id": "p1"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ============================================================================
// GET /api/v1/wishlists
// ============================================================================

func TestListWishlists_Defaults(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("GetAll", anyCtx, domain.Query{
		FilterBy: domain.FilterNone, SortBy: domain.SortByName, SortOrder: domain.SortAsc, Page: 0, Size: 10,
	}).Return([]domain.WishlistDetails{
		{User: domain.User{Email: "a@x.com"}, Name: "gifts", Products: []domain.Product{}},
	}, 1, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp httputil.PaginatedResponse[domain.WishlistDetails]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, 0, resp.Page)
	assert.Equal(t, 10, resp.Size)
	assert.Equal(t, 1, resp.TotalPages)
	assert.False(t, resp.HasNext)
	svc.AssertExpectations(t)
}

func TestListWishlists_ParsesQuery(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("GetAll", anyCtx, domain.Query{
		FilterBy:    domain.FilterCustomerEmail,
		FilterValue: "a@x.com",
		SortBy:      domain.SortByCreatedAt,
		SortOrder:   domain.SortDesc,
		Page:        2,
		Size:        5,
	}).Return([]domain.WishlistDetails{}, 11, nil)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/wishlists?filterBy=customerEmail&filterValue=a@x.com&sortBy=created_at&sortOrder=desc&page=2&size=5", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp httputil.PaginatedResponse[domain.WishlistDetails]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 3, resp.TotalPages)
	assert.False(t, resp.HasNext)
	svc.AssertExpectations(t)
}

func TestListWishlists_OutOfRangePagingFallsBack(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("GetAll", anyCtx, mock.MatchedBy(func(q domain.Query) bool {
		return q.Page == 0 && q.Size == 10
	})).Return([]domain.WishlistDetails{}, 0, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists?page=-3&size=5000", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestListWishlists_InvalidEnums(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"filterBy", "filterBy=rating"},
		{"sortBy", "sortBy=price"},
		{"sortOrder", "sortOrder=sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockWishlistService)
			router := newTestRouter(svc)

			rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists?"+tt.query, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
			svc.AssertNotCalled(t, "GetAll", mock.Anything, mock.Anything)
		})
	}
}

func TestListWishlists_ServiceValidationError(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("GetAll", anyCtx, mock.Anything).
		Return(nil, 0, apperrors.InvalidInput("filterValue is required for productId filter"))

	rec := doRequest(t, router, http.MethodGet, "/api/v1/wishlists?filterBy=productId", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", errResp.Code)
	assert.Contains(t, errResp.Message, "filterValue")
}

// ============================================================================
// DELETE /api/v1/wishlists
// ============================================================================

func TestDeleteAll_Success(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("DeleteAll", anyCtx).Return(nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/wishlists", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteAll_StoreFailure(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)

	svc.On("DeleteAll", anyCtx).Return(errors.New("boom"))

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/wishlists", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ============================================================================
// Router
// ============================================================================

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(new(mockWishlistService))

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/ready", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/metrics", nil).Code)
}

func TestRouter_PprofDeniedWithoutAllowlist(t *testing.T) {
	router := newTestRouter(new(mockWishlistService))

	rec := doRequest(t, router, http.MethodGet, "/debug/pprof/", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_CorrelationIDEchoed(t *testing.T) {
	svc := new(mockWishlistService)
	router := newTestRouter(svc)
	svc.On("GetWishlistByID", anyCtx, "a@x.com", "missing").
		Return(nil, apperrors.NotFound("wishlist", "a@x.com#missing"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlists/a@x.com/missing", nil)
	req.Header.Set("X-Correlation-ID", "corr-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "corr-42", rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "corr-42", decodeError(t, rec).RequestID)
}

func TestRouter_RateLimitsAPIButNotHealth(t *testing.T) {
	svc := new(mockWishlistService)
	svc.On("DeleteAll", anyCtx).Return(nil)
	router := NewRouter(svc, health.NewHandler(), handlerTestLogger(), RouterConfig{
		CORS:      middleware.DefaultCORSConfig(),
		RateLimit: middleware.RateLimitConfig{RPS: 1, Burst: 1},
	})

	assert.Equal(t, http.StatusNoContent, doRequest(t, router, http.MethodDelete, "/api/v1/wishlists", nil).Code)
	limited := doRequest(t, router, http.MethodDelete, "/api/v1/wishlists", nil)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, limited).Code)

	for range 3 {
		assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/health/live", nil).Code)
	}
	svc.AssertNumberOfCalls(t, "DeleteAll", 1)
}
