package shortener

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusLabel = "status"
	TaskLabel   = "task"

	StatusSuccess   = "success"
	StatusCollision = "collision"
	StatusExhausted = "exhausted"
	StatusError     = "error"
)

type Metrics struct {
	// Reservations counts attempts; a collision is one rejected candidate.
	Reservations       *prometheus.CounterVec
	BackgroundFailures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (Metrics, error) {
	m := Metrics{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortener_reservation_total",
			Help: "Short code reservation attempts by outcome.",
		}, []string{StatusLabel}),
		BackgroundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortener_background_failure_total",
			Help: "Failed best-effort directory and analytics writes.",
		}, []string{TaskLabel}),
	}
	for _, c := range []prometheus.Collector{m.Reservations, m.BackgroundFailures} {
		if err := reg.Register(c); err != nil {
			return Metrics{}, err
		}
	}
	return m, nil
}
