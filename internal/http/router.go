package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Catalog  *CatalogHandler
	Verifier TokenVerifier
	Logger   zerolog.Logger

	AllowedOrigins     []string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDMiddleware)
	r.Use(AccessLog(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(Authenticate(cfg.Verifier))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", cfg.Catalog.ListCategories)
			r.Get("/categories/{name}/items", cfg.Catalog.ListItems)
			r.Get("/items/{item_id}", cfg.Catalog.GetItem)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetCart)
			r.Delete("/", cfg.Cart.ClearCart)
			r.Post("/items", cfg.Cart.AddItem)
			r.Put("/items/{product_id}", cfg.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", cfg.Cart.RemoveItem)
			r.With(RequireAuth).Post("/merge", cfg.Cart.MergeGuestCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/", cfg.Orders.PlaceOrder)
			r.Get("/", cfg.Orders.ListOrders)
			r.Get("/{order_id}", cfg.Orders.GetOrder)
			r.Get("/{order_id}/qr", cfg.Orders.OrderQR)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", cfg.Orders.AdminListOrders)
			r.Get("/stats", cfg.Orders.AdminStats)
			r.Patch("/{order_id}/status", cfg.Orders.AdminUpdateStatus)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", sessionHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
	})

	return otelhttp.NewHandler(c.Handler(r), "food-orders-http")
}
