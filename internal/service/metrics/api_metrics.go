package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	SelectionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stocklens",
			Subsystem: "api",
			Name:      "selection_changes_total",
			Help:      "Selection mutations accepted by the API",
		},
		[]string{"action"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stocklens",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stocklens",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Connected dashboard stream clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(SelectionChanges, RateLimited, StreamClients)
	})
}
