package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/wishlist-service/pkg/errors"
	"github.com/utafrali/wishlist-service/pkg/httpclient"
)

// Doer sends a single HTTP request.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Plan describes the wishlists to create. Products are assigned round-robin
// from ProductIDs.
type Plan struct {
	Owners          []string
	ListNames       []string
	ProductIDs      []string
	ProductsPerList int
}

// Stats counts what a run did.
type Stats struct {
	Created       int
	Skipped       int
	ProductsAdded int
	Warnings      int
}

// Seeder drives the wishlist HTTP API.
type Seeder struct {
	client  Doer
	baseURL string
	logger  *slog.Logger
}

// NewSeeder creates a seeder targeting the wishlist service at baseURL.
func NewSeeder(client Doer, baseURL string, logger *slog.Logger) *Seeder {
	return &Seeder{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1/wishlists",
		logger:  logger,
	}
}

// Run creates every planned wishlist and fills it. Existing wishlists are
// skipped; unknown owners or products are logged and counted as warnings.
// Only transport failures abort the run.
func (s *Seeder) Run(ctx context.Context, plan Plan) (Stats, error) {
	var stats Stats
	next := 0

	for _, owner := range plan.Owners {
		for _, name := range plan.ListNames {
			err := s.send(ctx, http.MethodPost, s.baseURL, map[string]any{
				"user": map[string]string{"email": owner},
				"name": name,
			})
			switch {
			case err == nil:
				stats.Created++
				s.logger.Info("wishlist created", slog.String("owner_email", owner), slog.String("name", name))
			case errors.Is(err, apperrors.ErrAlreadyExists):
				stats.Skipped++
				s.logger.Info("wishlist exists, skipping", slog.String("owner_email", owner), slog.String("name", name))
				continue
			case apperrors.IsNotFound(err):
				stats.Warnings++
				s.logger.Warn("owner not found, skipping", slog.String("owner_email", owner))
				continue
			default:
				return stats, fmt.Errorf("create wishlist %s/%s: %w", owner, name, err)
			}

			if len(plan.ProductIDs) == 0 {
				continue
			}
			target := s.baseURL + "/" + url.PathEscape(owner) + "/" + url.PathEscape(name) + "/products"
			for i := 0; i < plan.ProductsPerList; i++ {
				productID := plan.ProductIDs[next%len(plan.ProductIDs)]
				next++

				err := s.send(ctx, http.MethodPut, target, map[string]string{"product_id": productID})
				switch {
				case err == nil:
					stats.ProductsAdded++
				case apperrors.IsNotFound(err):
					stats.Warnings++
					s.logger.Warn("product not found, skipping", slog.String("product_id", productID))
				default:
					return stats, fmt.Errorf("add product %s to %s/%s: %w", productID, owner, name, err)
				}
			}
		}
	}

	return stats, nil
}

func (s *Seeder) send(ctx context.Context, method, target string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return apperrors.Transport("wishlist", err)
	}

	if resp.StatusCode == http.StatusConflict {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return apperrors.AlreadyExists("wishlist", "key", target)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return httpclient.ParseResponseError(resp, "wishlist")
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
