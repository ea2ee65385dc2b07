package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "girinhas_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Trades
	ReservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "girinhas_reservations_created_total",
			Help: "Total reservations created",
		},
	)
	ReservationsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "girinhas_reservations_resolved_total",
			Help: "Total reservations resolved by outcome",
		},
		[]string{"outcome"}, // confirmed|cancelled|expired
	)

	// Expiration worker
	ReservationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "girinhas_worker_reservations_expired_total",
			Help: "Total reservations expired by the background worker",
		},
	)
	GirinhasForfeited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "girinhas_worker_forfeited_total",
			Help: "Total girinhas forfeited from expired lots",
		},
	)
	SweepErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "girinhas_worker_sweep_errors_total",
			Help: "Total errors encountered by the expiration worker",
		},
	)
)

// Handler serves the /metrics endpoint
var Handler = promhttp.Handler

// Init registers all collectors with the default registry
func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(ReservationsCreated)
	prometheus.MustRegister(ReservationsResolved)
	prometheus.MustRegister(ReservationsExpired)
	prometheus.MustRegister(GirinhasForfeited)
	prometheus.MustRegister(SweepErrors)
}
