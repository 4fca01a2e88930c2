package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Config describes one collaborator's outbound client.
type Config struct {
	// Name labels outbound metrics, e.g. "product".
	Name            string
	Timeout         time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns a 10s timeout and a 100 connection per-host pool.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxConnsPerHost: 100,
	}
}

// Client is a pooled HTTP client for a single collaborator. Every request
// carries the caller's trace context and is counted per collaborator. There
// are no retries: each call is one attempt bounded by Timeout and ctx.
type Client struct {
	httpClient *http.Client
	name       string
}

// New builds a Client with its own connection pool.
func New(cfg Config) *Client {
	pool := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: instrumented{next: pool, name: cfg.Name},
			Timeout:   cfg.Timeout,
		},
		name: cfg.Name,
	}
}

// Do sends req under ctx. Transport failures are wrapped with the method and
// redacted URL; non-2xx responses are returned as-is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	return resp, nil
}

// Get issues a GET asking for JSON.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(ctx, req)
}

// instrumented propagates trace context and records outbound metrics.
type instrumented struct {
	next http.RoundTripper
	name string
}

func (t instrumented) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	outboundRequestsTotal.WithLabelValues(t.name, req.Method, status).Inc()
	outboundRequestDuration.WithLabelValues(t.name, req.Method).Observe(time.Since(start).Seconds())

	return resp, err
}
