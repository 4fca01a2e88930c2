package config

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/utafrali/wishlist-service/pkg/config"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8090, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8006/api/v1/users", cfg.UsersServiceURL)
	assert.Equal(t, "http://localhost:8001", cfg.ProductsServiceURL)
	assert.Equal(t, "http://localhost:8001/reviews", cfg.ReviewsServiceURL)
	assert.Equal(t, 10*time.Second, cfg.CollaboratorTimeout)
	assert.True(t, cfg.EnrichRatings)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 200, cfg.SlowQueryThresholdMs)
	assert.InDelta(t, 1.0, cfg.OTELSampleRate, 0.0001)
	assert.Equal(t, 100, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
}

func TestLoad_FromEnv(t *testing.T) {
	setEnvs(t, map[string]string{
		"WISHLIST_HTTP_PORT":   "9100",
		"USERS_SERVICE_URL":    "https://users.internal/api/v1/users",
		"PRODUCTS_SERVICE_URL": "https://catalog.internal",
		"REVIEWS_SERVICE_URL":  "https://reviews.internal",
		"COLLABORATOR_TIMEOUT": "2500ms",
		"ENRICH_RATINGS":       "false",
		"STORE_BACKEND":        "redis",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "https://users.internal/api/v1/users", cfg.UsersServiceURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.CollaboratorTimeout)
	assert.False(t, cfg.EnrichRatings)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	setEnvs(t, map[string]string{"WISHLIST_HTTP_PORT": "70000"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_RejectsInvalidCollaboratorURL(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"relative users url", "USERS_SERVICE_URL", "/api/v1/users"},
		{"ftp products url", "PRODUCTS_SERVICE_URL", "ftp://catalog.internal"},
		{"missing host", "REVIEWS_SERVICE_URL", "http://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, map[string]string{tt.env: tt.value})

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	setEnvs(t, map[string]string{"STORE_BACKEND": "mongo"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_BACKEND")
}

func TestLoad_RejectsSampleRateOutOfRange(t *testing.T) {
	setEnvs(t, map[string]string{"OTEL_SAMPLE_RATE": "1.5"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE")
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	setEnvs(t, map[string]string{"COLLABORATOR_TIMEOUT": "0s"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COLLABORATOR_TIMEOUT")
}

func TestLoad_MalformedValueFailsParsing(t *testing.T) {
	setEnvs(t, map[string]string{"ENRICH_RATINGS": "sometimes"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load wishlist config")
}

func TestLoad_ExplicitEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")

	cfg, err := Load(pkgconfig.WithEnvironment(map[string]string{
		"STORE_BACKEND":  "redis",
		"REDIS_ADDR":     "cache:6379",
		"ENRICH_RATINGS": "false",
	}))

	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.False(t, cfg.EnrichRatings)
	assert.Equal(t, 8090, cfg.HTTPPort)
}

func TestLoad_RateLimit(t *testing.T) {
	tests := []struct {
		name    string
		rps     string
		burst   string
		wantErr string
	}{
		{name: "disabled", rps: "0", burst: "0"},
		{name: "custom", rps: "5", burst: "10"},
		{name: "negative rps", rps: "-1", burst: "10", wantErr: "RATE_LIMIT_RPS"},
		{name: "no burst", rps: "5", burst: "0", wantErr: "RATE_LIMIT_BURST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, map[string]string{"RATE_LIMIT_RPS": tt.rps, "RATE_LIMIT_BURST": tt.burst})

			cfg, err := Load()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rps, strconv.Itoa(cfg.RateLimitRPS))
		})
	}
}
