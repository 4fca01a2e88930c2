package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/wishlist-service/pkg/logger"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	l, buf := captureLogger()

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/wishlists", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	entry := decodeLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, seen, entry["correlation_id"])
	assert.EqualValues(t, http.StatusCreated, entry["status"])
}

func TestRequestLogging_ReusesCallerCorrelationID(t *testing.T) {
	l, _ := captureLogger()
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlists", nil)
	req.Header.Set(CorrelationHeader, "corr-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-7", rec.Header().Get(CorrelationHeader))
}

func TestRequestLogging_LevelByOutcome(t *testing.T) {
	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/api/v1/wishlists", http.StatusOK, "INFO"},
		{"/api/v1/wishlists", http.StatusNotFound, "WARN"},
		{"/api/v1/wishlists", http.StatusBadGateway, "ERROR"},
		{"/health/live", http.StatusOK, "DEBUG"},
		{"/metrics", http.StatusOK, "DEBUG"},
		{"/health/ready", http.StatusServiceUnavailable, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+http.StatusText(tt.status), func(t *testing.T) {
			l, buf := captureLogger()
			h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.level, decodeLine(t, buf)["level"])
		})
	}
}

func TestRequestLogging_IncludesRoutePattern(t *testing.T) {
	l, buf := captureLogger()

	r := chi.NewRouter()
	r.Use(RequestLogging(l))
	r.Get("/api/v1/wishlists/{email}/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/wishlists/a@x.com/gifts", nil))

	entry := decodeLine(t, buf)
	assert.Equal(t, "/api/v1/wishlists/{email}/{name}", entry["route"])
	assert.Equal(t, "/api/v1/wishlists/a@x.com/gifts", entry["path"])
	assert.EqualValues(t, len(`{"data":{}}`), entry["bytes"])
}
