package datastore

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DBNameLabel = "db_name"
	// QueryNameLabel is the label for DB metrics, representing the query name (e.g., "AppendClick").
	QueryNameLabel = "query_name"
	// StatusLabel is the label for DB metrics, representing the outcome (e.g., "success", "error").
	StatusLabel = "status"

	// StatusSuccess is the label for a successful operation.
	StatusSuccess = "success"
	// StatusError is the label for a failed operation.
	StatusError = "error"
	// StatusConflict is the label for a unique constraint violation.
	StatusConflict = "conflict"
)

// DBMetrics contains the Prometheus collectors for application-specific database metrics.
// Pool-level stats are handled by the separate PoolStatsCollector.
type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryTotal    *prometheus.CounterVec
}

type StatsCollector interface {
	Stat() *pgxpool.Stat
}

type poolStat struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*pgxpool.Stat) float64
}

// PoolStatsCollector exports pgxpool.Stat on every scrape.
type PoolStatsCollector struct {
	db    StatsCollector
	stats []poolStat
}

func NewPoolStatsCollector(db StatsCollector, dbName string) *PoolStatsCollector {
	labels := prometheus.Labels{DBNameLabel: dbName}
	gauge := func(name, help string, fn func(*pgxpool.Stat) float64) poolStat {
		return poolStat{prometheus.NewDesc(name, help, nil, labels), prometheus.GaugeValue, fn}
	}
	counter := func(name, help string, fn func(*pgxpool.Stat) float64) poolStat {
		return poolStat{prometheus.NewDesc(name, help, nil, labels), prometheus.CounterValue, fn}
	}

	return &PoolStatsCollector{
		db: db,
		stats: []poolStat{
			gauge("db_pool_max_conns", "Maximum number of connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			gauge("db_pool_total_conns", "Total number of connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("db_pool_acquired_conns", "Number of currently acquired connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("db_pool_idle_conns", "Number of currently idle connections in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			counter("db_pool_acquire_count_total", "Cumulative count of successful connection acquisitions.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			counter("db_pool_acquire_duration_seconds_total", "Total time blocked waiting for a new connection, in seconds.",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("db_pool_empty_acquire_total", "Cumulative count of acquires that waited for a connection.",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
		},
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.db.Stat()
	for _, s := range c.stats {
		ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, s.value(stat))
	}
}

// NewDBMetrics creates the database metrics collectors and registers them,
// together with a pool stats collector, with reg.
func NewDBMetrics(reg prometheus.Registerer, db StatsCollector, dbName string) (*DBMetrics, error) {
	m := &DBMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "The latency of database queries in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{QueryNameLabel}),

		QueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_total",
			Help: "The total number of database queries.",
		}, []string{QueryNameLabel, StatusLabel}),
	}

	collectors := []prometheus.Collector{
		m.QueryDuration,
		m.QueryTotal,
		NewPoolStatsCollector(db, dbName),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *DBMetrics) observe(queryName string, start time.Time, status string) {
	m.QueryDuration.WithLabelValues(queryName).Observe(time.Since(start).Seconds())
	m.QueryTotal.WithLabelValues(queryName, status).Inc()
}
