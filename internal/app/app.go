package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/wishlist-service/internal/collaborator"
	"github.com/utafrali/wishlist-service/internal/config"
	"github.com/utafrali/wishlist-service/internal/event"
	handler "github.com/utafrali/wishlist-service/internal/handler/http"
	"github.com/utafrali/wishlist-service/internal/repository"
	"github.com/utafrali/wishlist-service/internal/repository/postgres"
	redisrepo "github.com/utafrali/wishlist-service/internal/repository/redis"
	"github.com/utafrali/wishlist-service/internal/service"
	"github.com/utafrali/wishlist-service/migrations"
	"github.com/utafrali/wishlist-service/pkg/database"
	"github.com/utafrali/wishlist-service/pkg/health"
	"github.com/utafrali/wishlist-service/pkg/httpclient"
	pkgkafka "github.com/utafrali/wishlist-service/pkg/kafka"
	"github.com/utafrali/wishlist-service/pkg/middleware"
	"github.com/utafrali/wishlist-service/pkg/tracing"
)

// App wires together all dependencies and runs the wishlist service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "wishlist",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	a.producer = producer
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Collaborator clients, one pooled HTTP client each so outbound metrics
	// are labelled per collaborator.
	users := collaborator.NewUserClient(newHTTPClient("user", cfg.CollaboratorTimeout), cfg.UsersServiceURL)
	products := collaborator.NewProductClient(newHTTPClient("product", cfg.CollaboratorTimeout), cfg.ProductsServiceURL)
	reviews := collaborator.NewReviewClient(newHTTPClient("review", cfg.CollaboratorTimeout), cfg.ReviewsServiceURL)

	// Build the dependency graph.
	eventProducer := event.NewProducer(producer, logger)
	wishlistService := service.NewWishlistService(
		repo, users, products, reviews, eventProducer,
		service.Options{EnrichRatings: cfg.EnrichRatings},
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical(cfg.StoreBackend, repo.Ping)
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	// HTTP router.
	router := handler.NewRouter(wishlistService, healthHandler, logger, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the configured wishlist store backend.
func (a *App) openStore(ctx context.Context) (repository.WishlistRepository, error) {
	cfg := a.cfg

	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := database.OpenRedis(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))
		database.RegisterRedisPoolMetrics(client, "wishlist")
		return redisrepo.NewWishlistRepository(client), nil

	case config.BackendPostgres:
		pgCfg := database.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPass,
			DBName:          cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
			MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
		}

		pool, err := database.OpenPostgres(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		database.RegisterPoolMetrics(pool, "wishlist")

		// Run database migrations.
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		// Configure slow query logging.
		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}

		a.pool = pool
		return postgres.NewWishlistRepository(pool), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newHTTPClient(name string, timeout time.Duration) *httpclient.Client {
	cfg := httpclient.DefaultConfig(name)
	cfg.Timeout = timeout
	return httpclient.New(cfg)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.StoreBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in dependency order: the HTTP server drains
// first, then pending spans are flushed, then the producer and the store
// connection close. Every step runs; their errors are joined.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	steps := []struct {
		name    string
		timeout time.Duration
		stop    func(context.Context) error
	}{
		{"http server", 5 * time.Second, a.httpServer.Shutdown},
		{"tracer", 3 * time.Second, a.tracerShutdown},
		{"kafka producer", 0, func(context.Context) error { return a.producer.Close() }},
		{"store", 0, a.closeStore},
	}

	var errs []error
	for _, step := range steps {
		if step.stop == nil {
			continue
		}
		if err := runStep(step.timeout, step.stop); err != nil {
			a.logger.Error(step.name+" shutdown error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func runStep(timeout time.Duration, stop func(context.Context) error) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return stop(ctx)
}

func (a *App) closeStore(context.Context) error {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
