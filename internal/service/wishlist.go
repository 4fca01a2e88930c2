package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/wishlist-service/internal/domain"
	"github.com/utafrali/wishlist-service/internal/repository"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
	"github.com/utafrali/wishlist-service/pkg/pagination"
	"github.com/utafrali/wishlist-service/pkg/tracing"
)

// UserLookup resolves wishlist owners.
type UserLookup interface {
	GetUser(ctx context.Context, email string) (*domain.User, error)
}

// ProductLookup resolves product references to full details.
type ProductLookup interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// RatingLookup fetches average product ratings.
type RatingLookup interface {
	GetAverageRating(ctx context.Context, productID string) (*domain.ProductRating, error)
}

// EventPublisher emits wishlist lifecycle events.
type EventPublisher interface {
	PublishWishlistCreated(ctx context.Context, w *domain.Wishlist) error
	PublishProductAdded(ctx context.Context, email, name, productID string) error
	PublishWishlistCleared(ctx context.Context) error
}

// Options tunes the orchestrator.
type Options struct {
	// EnrichRatings attaches review ratings in GetWishlistByID.
	EnrichRatings bool
}

// WishlistService implements the business logic for wishlist operations.
type WishlistService struct {
	repo     repository.WishlistRepository
	users    UserLookup
	products ProductLookup
	ratings  RatingLookup
	events   EventPublisher
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewWishlistService creates a new wishlist service. events may be nil.
func NewWishlistService(
	repo repository.WishlistRepository,
	users UserLookup,
	products ProductLookup,
	ratings RatingLookup,
	events EventPublisher,
	opts Options,
	logger *slog.Logger,
) *WishlistService {
	return &WishlistService{
		repo:     repo,
		users:    users,
		products: products,
		ratings:  ratings,
		events:   events,
		opts:     opts,
		logger:   logger,
		tracer:   tracing.Tracer("wishlist-service/service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput holds the parameters for creating a wishlist.
type CreateInput struct {
	User domain.User
	Name string
}

// Create creates an empty wishlist for an existing user. The stored owner is
// the user as reported by the user service.
func (s *WishlistService) Create(ctx context.Context, input CreateInput) (_ *domain.Wishlist, err error) {
	ctx, span := s.startSpan(ctx, "Create", input.User.Email, input.Name)
	defer func() { endSpan(span, err) }()

	if input.User.Email == "" {
		return nil, apperrors.InvalidInput("user email is required")
	}
	if err := validateName(input.Name); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, input.User.Email)
	if err != nil {
		return nil, fmt.Errorf("look up wishlist owner: %w", err)
	}

	now := s.now()
	w := &domain.Wishlist{
		User:      *user,
		Name:      input.Name,
		Products:  []domain.ProductRef{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The owner key is always the email the caller asked for.
	w.User.Email = input.User.Email

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "wishlist created",
		slog.String("owner_email", w.User.Email),
		slog.String("name", w.Name),
	)
	s.publish(ctx, "wishlist.created", func() error { return s.events.PublishWishlistCreated(ctx, w) })

	return w, nil
}

// GetWishlistByID returns the wishlist with live product details and, when
// enabled, average ratings. Any enrichment failure fails the call.
func (s *WishlistService) GetWishlistByID(ctx context.Context, email, name string) (_ *domain.WishlistDetails, err error) {
	ctx, span := s.startSpan(ctx, "GetWishlistByID", email, name)
	defer func() { endSpan(span, err) }()

	if err := validateKey(email, name); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, email); err != nil {
		return nil, fmt.Errorf("look up wishlist owner: %w", err)
	}

	w, err := s.repo.GetByKey(ctx, email, name)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	products, err := s.resolveProducts(ctx, w.Products, s.opts.EnrichRatings)
	if err != nil {
		return nil, err
	}

	details := domain.NewWishlistDetails(w, products)
	return &details, nil
}

// AddProduct appends a product to a wishlist after checking the product
// exists.
func (s *WishlistService) AddProduct(ctx context.Context, email, name string, ref domain.ProductRef) (err error) {
	ctx, span := s.startSpan(ctx, "AddProduct", email, name)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("wishlist.product_id", ref.ProductID))

	if err := validateKey(email, name); err != nil {
		return err
	}
	if ref.ProductID == "" {
		return apperrors.InvalidInput("product id is required")
	}

	if _, err := s.products.GetProduct(ctx, ref.ProductID); err != nil {
		return fmt.Errorf("look up product: %w", err)
	}

	if err := s.repo.AppendProduct(ctx, email, name, domain.ProductRef{ProductID: ref.ProductID}); err != nil {
		return fmt.Errorf("add product to wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "product added to wishlist",
		slog.String("owner_email", email),
		slog.String("name", name),
		slog.String("product_id", ref.ProductID),
	)
	s.publish(ctx, "wishlist.product_added", func() error {
		return s.events.PublishProductAdded(ctx, email, name, ref.ProductID)
	})

	return nil
}

// GetAll lists wishlists with full product details. Filtering by product id
// is applied to the requested page only, so the returned total for that
// filter counts matches on the page.
func (s *WishlistService) GetAll(ctx context.Context, q domain.Query) (_ []domain.WishlistDetails, _ int, err error) {
	ctx, span := s.startSpan(ctx, "GetAll", "", "")
	defer func() { endSpan(span, err) }()

	filter, err := listFilter(q)
	if err != nil {
		return nil, 0, err
	}

	wishlists, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlists: %w", err)
	}

	if q.FilterBy == domain.FilterProductID {
		matches := wishlists[:0:0]
		for _, w := range wishlists {
			if w.Contains(q.FilterValue) {
				matches = append(matches, w)
			}
		}
		wishlists = matches
		total = len(matches)
	}

	result := make([]domain.WishlistDetails, 0, len(wishlists))
	for i := range wishlists {
		products, err := s.resolveProducts(ctx, wishlists[i].Products, false)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, domain.NewWishlistDetails(&wishlists[i], products))
	}

	return result, total, nil
}

// DeleteAll removes every wishlist.
func (s *WishlistService) DeleteAll(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteAll", "", "")
	defer func() { endSpan(span, err) }()

	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete all wishlists: %w", err)
	}

	s.logger.InfoContext(ctx, "all wishlists deleted")
	s.publish(ctx, "wishlist.cleared", func() error { return s.events.PublishWishlistCleared(ctx) })

	return nil
}

// resolveProducts fetches details for each reference in insertion order.
func (s *WishlistService) resolveProducts(ctx context.Context, refs []domain.ProductRef, withRatings bool) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(refs))
	for _, ref := range refs {
		p, err := s.products.GetProduct(ctx, ref.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", ref.ProductID, err)
		}

		if withRatings {
			r, err := s.ratings.GetAverageRating(ctx, ref.ProductID)
			if err != nil {
				return nil, fmt.Errorf("resolve rating for %s: %w", ref.ProductID, err)
			}
			rating := r.Rating
			p.Rating = &rating
		}

		products = append(products, *p)
	}
	return products, nil
}

func (s *WishlistService) startSpan(ctx context.Context, op, email, name string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "WishlistService."+op)
	if email != "" {
		span.SetAttributes(attribute.String("wishlist.owner", email), attribute.String("wishlist.name", name))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *WishlistService) publish(ctx context.Context, eventType string, fn func() error) {
	if s.events == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func validateKey(email, name string) error {
	if email == "" {
		return apperrors.InvalidInput("user email is required")
	}
	if name == "" {
		return apperrors.InvalidInput("wishlist name is required")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperrors.InvalidInput("wishlist name is required")
	}
	if strings.Contains(name, domain.KeyDelimiter) {
		return apperrors.InvalidInput(fmt.Sprintf("wishlist name must not contain %q", domain.KeyDelimiter))
	}
	return nil
}

func listFilter(q domain.Query) (repository.ListFilter, error) {
	filter := repository.ListFilter{
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Size:      q.Size,
	}
	if filter.SortBy == "" {
		filter.SortBy = domain.SortByName
	}
	if filter.SortOrder == "" {
		filter.SortOrder = domain.SortAsc
	}

	switch filter.SortBy {
	case domain.SortByName, domain.SortByEmail, domain.SortByCreatedAt, domain.SortByUpdatedAt:
	default:
		return filter, apperrors.InvalidInput(fmt.Sprintf("unknown sort field %q", q.SortBy))
	}
	if filter.SortOrder != domain.SortAsc && filter.SortOrder != domain.SortDesc {
		return filter, apperrors.InvalidInput(fmt.Sprintf("unknown sort order %q", q.SortOrder))
	}
	if filter.Page < 0 {
		return filter, apperrors.InvalidInput("page must not be negative")
	}
	if filter.Size < 1 || filter.Size > pagination.MaxSize {
		return filter, apperrors.InvalidInput(fmt.Sprintf("size must be between 1 and %d", pagination.MaxSize))
	}

	switch q.FilterBy {
	case "", domain.FilterNone:
	case domain.FilterCustomerEmail:
		if q.FilterValue == "" {
			return filter, apperrors.InvalidInput("filterValue is required for customerEmail filter")
		}
		filter.OwnerEmail = q.FilterValue
	case domain.FilterProductID:
		if q.FilterValue == "" {
			return filter, apperrors.InvalidInput("filterValue is required for productId filter")
		}
	default:
		return filter, apperrors.InvalidInput(fmt.Sprintf("unknown filter %q", q.FilterBy))
	}

	return filter, nil
}
