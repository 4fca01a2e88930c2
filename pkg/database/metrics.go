package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// poolMetric reads one value out of a pool statistics snapshot S.
type poolMetric[S any] struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(S) float64
}

// PoolCollector exports connection pool statistics for a store backend. The
// snapshot is taken once per scrape so all values are consistent.
type PoolCollector[S any] struct {
	snapshot func() S
	metrics  []poolMetric[S]
	labels   []string
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolCollector[S]) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect takes a pool snapshot and sends every metric derived from it.
func (c *PoolCollector[S]) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s), c.labels...)
	}
}

func poolDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc("db_pool_"+name, help, []string{"service", "backend"}, nil)
}

func gauge[S any](name, help string, fn func(S) float64) poolMetric[S] {
	return poolMetric[S]{desc: poolDesc(name, help), kind: prometheus.GaugeValue, value: fn}
}

func counter[S any](name, help string, fn func(S) float64) poolMetric[S] {
	return poolMetric[S]{desc: poolDesc(name, help), kind: prometheus.CounterValue, value: fn}
}

// NewPgxPoolCollector exports pgxpool statistics labelled with service and
// backend="postgres".
func NewPgxPoolCollector(pool *pgxpool.Pool, service string) *PoolCollector[*pgxpool.Stat] {
	type stat = *pgxpool.Stat
	return &PoolCollector[stat]{
		snapshot: func() stat { return pool.Stat() },
		labels:   []string{service, "postgres"},
		metrics: []poolMetric[stat]{
			gauge("acquired_connections", "Number of currently acquired connections",
				func(s stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("idle_connections", "Number of currently idle connections",
				func(s stat) float64 { return float64(s.IdleConns()) }),
			gauge("total_connections", "Total number of connections in the pool",
				func(s stat) float64 { return float64(s.TotalConns()) }),
			gauge("max_connections", "Maximum number of connections allowed",
				func(s stat) float64 { return float64(s.MaxConns()) }),
			counter("acquire_count_total", "Total number of connection acquires",
				func(s stat) float64 { return float64(s.AcquireCount()) }),
			counter("acquire_duration_seconds_total", "Total time spent acquiring connections in seconds",
				func(s stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("empty_acquire_count_total", "Total number of acquires that had to wait for a connection",
				func(s stat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("new_connections_total", "Total number of new connections created",
				func(s stat) float64 { return float64(s.NewConnsCount()) }),
		},
	}
}

// NewRedisPoolCollector exports go-redis pool statistics labelled with
// service and backend="redis".
func NewRedisPoolCollector(client *redis.Client, service string) *PoolCollector[*redis.PoolStats] {
	type stat = *redis.PoolStats
	return &PoolCollector[stat]{
		snapshot: func() stat { return client.PoolStats() },
		labels:   []string{service, "redis"},
		metrics: []poolMetric[stat]{
			gauge("idle_connections", "Number of currently idle connections",
				func(s stat) float64 { return float64(s.IdleConns) }),
			gauge("total_connections", "Total number of connections in the pool",
				func(s stat) float64 { return float64(s.TotalConns) }),
			counter("hits_total", "Times a free connection was found in the pool",
				func(s stat) float64 { return float64(s.Hits) }),
			counter("misses_total", "Times a free connection was not found in the pool",
				func(s stat) float64 { return float64(s.Misses) }),
			counter("timeouts_total", "Times a wait for a connection timed out",
				func(s stat) float64 { return float64(s.Timeouts) }),
			counter("stale_connections_total", "Stale connections removed from the pool",
				func(s stat) float64 { return float64(s.StaleConns) }),
		},
	}
}

// RegisterPoolMetrics registers a pgxpool collector with the default
// Prometheus registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(NewPgxPoolCollector(pool, service))
}

// RegisterRedisPoolMetrics registers a go-redis pool collector with the
// default Prometheus registry.
func RegisterRedisPoolMetrics(client *redis.Client, service string) {
	prometheus.MustRegister(NewRedisPoolCollector(client, service))
}
