// Command seed populates a running wishlist service with demo wishlists
// through its HTTP API. Owners and products must already exist in the user
// and product services.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	pkgconfig "github.com/utafrali/wishlist-service/pkg/config"
	"github.com/utafrali/wishlist-service/pkg/httpclient"
	"github.com/utafrali/wishlist-service/pkg/logger"
)

type seedConfig struct {
	WishlistURL     string        `env:"WISHLIST_URL" envDefault:"http://localhost:8090"`
	Owners          []string      `env:"SEED_OWNERS" envDefault:"alice@example.com,bob@example.com" envSeparator:","`
	ListNames       []string      `env:"SEED_LIST_NAMES" envDefault:"birthday,home,someday" envSeparator:","`
	ProductIDs      []string      `env:"SEED_PRODUCT_IDS" envSeparator:","`
	ProductsPerList int           `env:"SEED_PRODUCTS_PER_LIST" envDefault:"3"`
	Timeout         time.Duration `env:"SEED_TIMEOUT" envDefault:"2m"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("wishlist-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	seeder := NewSeeder(httpclient.New(httpclient.DefaultConfig("wishlist")), cfg.WishlistURL, log)
	stats, err := seeder.Run(ctx, Plan{
		Owners:          cfg.Owners,
		ListNames:       cfg.ListNames,
		ProductIDs:      cfg.ProductIDs,
		ProductsPerList: cfg.ProductsPerList,
	})
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.Int("wishlists_created", stats.Created),
		slog.Int("wishlists_skipped", stats.Skipped),
		slog.Int("products_added", stats.ProductsAdded),
		slog.Int("warnings", stats.Warnings),
	)
}
