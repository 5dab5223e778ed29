package transport

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the HTTP surface. The webhook endpoint sits outside the
// auth requirement: the gateway authenticates with its signature, not a
// bearer token.
func NewRouter(orders order.Service, webhook http.Handler, jwtSecret string) *chi.Mux {
	h := NewHandler(orders)

	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.Logging)
	r.Use(middleware.Auth(jwtSecret))

	r.Route("/api/orders", func(r chi.Router) {
		r.With(middleware.RateLimit(true)).Method(http.MethodPost, "/webhook", webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.With(middleware.RateLimit(true)).Post("/", h.createOrder)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(false))

				r.Get("/", h.listOrders)
				r.Get("/stats", h.orderStats)
				r.Get("/{orderId}", h.getOrder)
				r.Put("/{orderId}/status", h.updateStatus)
				r.Put("/{orderId}/cancel", h.cancelOrder)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
