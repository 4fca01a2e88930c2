package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/wishlist-service/internal/domain"
	"github.com/utafrali/wishlist-service/internal/repository"
	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
)

const (
	docPrefix      = "wishlist:"
	indexPrefix    = "wishlist-index:"
	allIndexKey    = indexPrefix + "all"
	ownerIndexBase = indexPrefix + "owner:"

	// maxWatchAttempts bounds optimistic transaction retries when another
	// writer touches the same wishlist between WATCH and EXEC.
	maxWatchAttempts = 5
)

func docKey(email, name string) string { return docPrefix + domain.Key(email, name) }

func ownerIndexKey(email string) string { return ownerIndexBase + email }

// WishlistRepository implements repository.WishlistRepository using Redis.
// Each wishlist is a JSON document; sorted sets scored by creation time index
// all wishlists and each owner's wishlists.
type WishlistRepository struct {
	client *redis.Client
}

// NewWishlistRepository creates a new Redis-backed wishlist repository.
func NewWishlistRepository(client *redis.Client) *WishlistRepository {
	return &WishlistRepository{client: client}
}

// Create stores a new wishlist document and its index entries in one
// MULTI guarded by WATCH on the document key. If EXEC reports a failed
// command the document is removed again, so a document never exists
// without its index entries.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	if w.Products == nil {
		w.Products = []domain.ProductRef{}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wishlist: %w", err)
	}

	key := docKey(w.User.Email, w.Name)
	member := redis.Z{Score: float64(w.CreatedAt.UnixMilli()), Member: w.Key()}

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redis exists wishlist: %w", err)
		}
		if n > 0 {
			return apperrors.AlreadyExists("wishlist", "key", w.Key())
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, allIndexKey, member)
			pipe.ZAdd(ctx, ownerIndexKey(w.User.Email), member)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			if delErr := r.client.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
				err = errors.Join(err, fmt.Errorf("remove unindexed wishlist: %w", delErr))
			}
		}
		return err
	}

	return r.watch(ctx, key, txf, "create wishlist")
}

// GetByKey retrieves a wishlist by owner email and name.
func (r *WishlistRepository) GetByKey(ctx context.Context, email, name string) (*domain.Wishlist, error) {
	data, err := r.client.Get(ctx, docKey(email, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("wishlist", domain.Key(email, name))
		}
		return nil, fmt.Errorf("redis get wishlist: %w", err)
	}

	var w domain.Wishlist
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal wishlist: %w", err)
	}
	return &w, nil
}

// AppendProduct appends a product reference inside a WATCH/MULTI transaction
// on the wishlist document.
func (r *WishlistRepository) AppendProduct(ctx context.Context, email, name string, ref domain.ProductRef) error {
	key := docKey(email, name)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("wishlist", domain.Key(email, name))
			}
			return fmt.Errorf("redis get wishlist: %w", err)
		}

		var w domain.Wishlist
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("unmarshal wishlist: %w", err)
		}
		w.Products = append(w.Products, ref)
		w.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&w)
		if err != nil {
			return fmt.Errorf("marshal wishlist: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	return r.watch(ctx, key, txf, "append wishlist product")
}

// watch runs txf under WATCH on key, retrying when another writer touches
// the key before EXEC. AppErrors from txf pass through unchanged.
func (r *WishlistRepository) watch(ctx context.Context, key string, txf func(*redis.Tx) error, what string) error {
	for range maxWatchAttempts {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return err
			}
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}
	return apperrors.Conflict(fmt.Sprintf("wishlist %s modified concurrently", strings.TrimPrefix(key, docPrefix)))
}

// List returns one page of wishlists ordered by the requested field, with the
// total match count.
func (r *WishlistRepository) List(ctx context.Context, filter repository.ListFilter) ([]domain.Wishlist, int, error) {
	index := allIndexKey
	if filter.OwnerEmail != "" {
		index = ownerIndexKey(filter.OwnerEmail)
	}

	members, err := r.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis zrange %s: %w", index, err)
	}
	if len(members) == 0 {
		return []domain.Wishlist{}, 0, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = docPrefix + m
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis mget wishlists: %w", err)
	}

	wishlists := make([]domain.Wishlist, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document.
			continue
		}
		var w domain.Wishlist
		if err := json.Unmarshal([]byte(s), &w); err != nil {
			return nil, 0, fmt.Errorf("unmarshal wishlist: %w", err)
		}
		wishlists = append(wishlists, w)
	}

	slices.SortStableFunc(wishlists, compareBy(filter.SortBy, filter.SortOrder))

	total := len(wishlists)
	start := min(filter.Offset(), total)
	end := min(start+filter.Size, total)

	return wishlists[start:end], total, nil
}

// DeleteAll removes every wishlist document and index.
func (r *WishlistRepository) DeleteAll(ctx context.Context) error {
	for _, pattern := range []string{docPrefix + "*", indexPrefix + "*"} {
		var keys []string
		iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del wishlists: %w", err)
		}
	}
	return nil
}

// Ping checks Redis connectivity.
func (r *WishlistRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// compareBy orders wishlists by field and direction, breaking ties by
// composite key so paging is deterministic.
func compareBy(field domain.SortBy, order domain.SortOrder) func(a, b domain.Wishlist) int {
	return func(a, b domain.Wishlist) int {
		var c int
		switch field {
		case domain.SortByEmail:
			c = cmp.Compare(a.User.Email, b.User.Email)
		case domain.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case domain.SortByUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = cmp.Compare(a.Name, b.Name)
		}
		if order == domain.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(a.User.Email, b.User.Email); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	}
}
