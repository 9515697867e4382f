package router

import (
	"net/http"

	"freshcart/internal/handler"
	"freshcart/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CORS -> CorrelationID
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	// Gateways cannot send an API key; the signature header authenticates them.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/stripe", h.Orders.StripeWebhook)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))

		r.Get("/products", h.Products.List)
		r.Get("/products/{id}", h.Products.GetByID)

		// Confirmation is authorised by the gateway signature, not the caller.
		r.Post("/orders/{id}/confirm", h.Orders.Confirm)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(logger))

			r.Get("/cart", h.Cart.Get)
			r.Put("/cart/items/{productId}", h.Cart.SetItem)
			r.Delete("/cart/items/{productId}", h.Cart.RemoveItem)

			r.Post("/orders", h.Orders.Place)
			r.Get("/orders/{id}", h.Orders.GetByID)
			r.Post("/orders/{id}/cancel", h.Orders.Cancel)
		})

		r.Patch("/admin/orders/{id}/status", h.Orders.UpdateStatus)
	})

	return r
}
