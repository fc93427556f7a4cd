package router

import (
	"net/http"

	"foodkart/internal/handler"
	"foodkart/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Restaurant *handler.RestaurantHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	Payment    *handler.PaymentHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, apiKey string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> Logging -> CORS -> APIKeyAuth -> UserIdentity
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))
	r.Use(middleware.UserIdentity)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/restaurants/{id}", func(r chi.Router) {
			r.Get("/", h.Restaurant.GetByID)
			r.Get("/menu", h.Restaurant.Menu)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Put("/", h.Cart.Put)
			r.Delete("/", h.Cart.Clear)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{itemId}", h.Cart.UpdateQuantity)
			r.Delete("/items/{itemId}", h.Cart.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Order.Create)
			r.Get("/{id}", h.Order.GetByID)
		})

		r.Route("/payment/links", func(r chi.Router) {
			r.Post("/", h.Payment.CreateLink)
			r.Get("/{id}", h.Payment.GetStatus)
			r.Post("/{id}/pay", h.Payment.MarkPaid)
		})
	})

	return r
}
