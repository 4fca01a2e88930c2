package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/wishlist-service/internal/domain"
	"github.com/utafrali/wishlist-service/internal/repository"
	"github.com/utafrali/wishlist-service/pkg/database"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
)

// sortColumns maps sort fields to their column. Only these identifiers are
// ever interpolated into SQL.
var sortColumns = map[domain.SortBy]string{
	domain.SortByName:      "name",
	domain.SortByEmail:     "owner_email",
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
}

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db database.DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Create inserts a new wishlist with its owner snapshot and product references.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) (err error) {
	const query = `
		INSERT INTO wishlists (owner_email, name, owner, products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "CreateWishlist", query)
	defer func() { end(err) }()

	ownerJSON, err := json.Marshal(w.User)
	if err != nil {
		return fmt.Errorf("marshal owner: %w", err)
	}
	products := w.Products
	if products == nil {
		products = []domain.ProductRef{}
	}
	productsJSON, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal products: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		w.User.Email,
		w.Name,
		ownerJSON,
		productsJSON,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("wishlist", "key", w.Key())
		}
		return fmt.Errorf("insert wishlist: %w", err)
	}

	return nil
}

// GetByKey retrieves a wishlist by owner email and name.
func (r *WishlistRepository) GetByKey(ctx context.Context, email, name string) (w *domain.Wishlist, err error) {
	const query = `
		SELECT owner, name, products, created_at, updated_at
		FROM wishlists
		WHERE owner_email = $1 AND name = $2`

	ctx, end := database.TraceQuery(ctx, "GetWishlist", query)
	defer func() { end(err) }()

	var (
		wl           domain.Wishlist
		ownerJSON    []byte
		productsJSON []byte
	)
	err = r.db.QueryRow(ctx, query, email, name).Scan(
		&ownerJSON,
		&wl.Name,
		&productsJSON,
		&wl.CreatedAt,
		&wl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", domain.Key(email, name))
		}
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	if err := decodeColumns(&wl, ownerJSON, productsJSON); err != nil {
		return nil, err
	}
	return &wl, nil
}

// AppendProduct appends a product reference in a single UPDATE so concurrent
// appends to the same wishlist never overwrite each other.
func (r *WishlistRepository) AppendProduct(ctx context.Context, email, name string, ref domain.ProductRef) (err error) {
	const query = `
		UPDATE wishlists
		SET products = products || $3::jsonb, updated_at = NOW()
		WHERE owner_email = $1 AND name = $2`

	ctx, end := database.TraceQuery(ctx, "AppendWishlistProduct", query)
	defer func() { end(err) }()

	refJSON, err := json.Marshal([]domain.ProductRef{ref})
	if err != nil {
		return fmt.Errorf("marshal product ref: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, email, name, refJSON)
	if err != nil {
		return fmt.Errorf("append wishlist product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", domain.Key(email, name))
	}

	return nil
}

// List returns one page of wishlists ordered by the requested field, with the
// total match count.
func (r *WishlistRepository) List(ctx context.Context, filter repository.ListFilter) (_ []domain.Wishlist, _ int, err error) {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if filter.SortOrder == domain.SortDesc {
		direction = "DESC"
	}

	var (
		where string
		args  []any
	)
	if filter.OwnerEmail != "" {
		where = "WHERE owner_email = $1"
		args = append(args, filter.OwnerEmail)
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT owner, name, products, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM wishlists
		%s
		ORDER BY %s %s, owner_email, name
		LIMIT $%d OFFSET $%d`,
		where, column, direction, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Size, filter.Offset())

	ctx, end := database.TraceQuery(ctx, "ListWishlists", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close()

	var (
		wishlists  []domain.Wishlist
		totalCount int
	)
	for rows.Next() {
		var (
			wl           domain.Wishlist
			ownerJSON    []byte
			productsJSON []byte
		)
		if err := rows.Scan(
			&ownerJSON,
			&wl.Name,
			&productsJSON,
			&wl.CreatedAt,
			&wl.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan wishlist row: %w", err)
		}
		if err := decodeColumns(&wl, ownerJSON, productsJSON); err != nil {
			return nil, 0, err
		}
		wishlists = append(wishlists, wl)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	if wishlists == nil {
		wishlists = []domain.Wishlist{}
	}

	return wishlists, totalCount, nil
}

// DeleteAll removes every wishlist.
func (r *WishlistRepository) DeleteAll(ctx context.Context) (err error) {
	const query = `DELETE FROM wishlists`

	ctx, end := database.TraceQuery(ctx, "DeleteAllWishlists", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("delete wishlists: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *WishlistRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func decodeColumns(wl *domain.Wishlist, ownerJSON, productsJSON []byte) error {
	if err := json.Unmarshal(ownerJSON, &wl.User); err != nil {
		return fmt.Errorf("unmarshal owner: %w", err)
	}
	if len(productsJSON) > 0 {
		if err := json.Unmarshal(productsJSON, &wl.Products); err != nil {
			return fmt.Errorf("unmarshal products: %w", err)
		}
	}
	if wl.Products == nil {
		wl.Products = []domain.ProductRef{}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
