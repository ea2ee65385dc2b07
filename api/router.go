package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"girinhas/metrics"
)

// NewRouter wires the marketplace HTTP API
func NewRouter(handler *Handler, tokens *TokenManager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", handler.Register)

		r.Group(func(r chi.Router) {
			r.Use(tokens.Authenticate)

			r.Post("/accounts/{id}/credits", handler.Credit)
			r.Post("/transfers", handler.Transfer)

			r.Get("/wallet", handler.Wallet)
			r.Get("/wallet/transactions", handler.Transactions)

			r.Post("/items", handler.PublishItem)
			r.Get("/items/{id}", handler.GetItem)
			r.Post("/items/{id}/claims", handler.Claim)
			r.Get("/items/{id}/queue/position", handler.QueuePosition)
			r.Delete("/items/{id}/queue", handler.LeaveQueue)

			r.Get("/reservations/{id}", handler.GetReservation)
			r.Post("/reservations/{id}/cancel", handler.CancelReservation)
			r.Post("/reservations/{id}/confirm", handler.ConfirmReservation)
		})
	})

	return r
}
