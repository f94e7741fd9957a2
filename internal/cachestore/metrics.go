package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// KeyPrefixLabel is the label for cache metrics, representing the key prefix.
	KeyPrefixLabel = "key_prefix"
	// StatusLabel is the outcome of a reservation attempt.
	StatusLabel = "status"

	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// Metrics contains the Prometheus collectors for code store metrics.
type Metrics struct {
	Hits         *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	Reservations *prometheus.CounterVec
}

// NewMetrics creates the code store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (Metrics, error) {
	m := Metrics{
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hit_count",
			Help: "The number of code lookups that found a payload",
		}, []string{KeyPrefixLabel}),
		Misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_miss_count",
			Help: "The number of code lookups for unreserved codes",
		}, []string{KeyPrefixLabel}),
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_reservation_total",
			Help: "The number of set-if-absent attempts by outcome",
		}, []string{KeyPrefixLabel, StatusLabel}),
	}

	collectors := []prometheus.Collector{
		m.Hits,
		m.Misses,
		m.Reservations,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return Metrics{}, err
		}
	}
	return m, nil
}
