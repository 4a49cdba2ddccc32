package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Books     *BookHandler
	Cart      *CartHandler
	Checkout  *CheckoutHandler
	Orders    *OrdersHandler
	Favorites *FavoritesHandler
	Profile   *ProfileHandler
}

type RouterConfig struct {
	JWTSecret          []byte
	JWTIssuer          string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter mounts the API under /api/v1 behind JWT auth. /health and /ready are public.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	auth := JWTAuth(cfg.JWTSecret, cfg.JWTIssuer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			// Processor redirects arrive without a bearer token.
			r.Get("/return", h.Checkout.CheckoutReturn)
			r.Get("/cancel", h.Checkout.CheckoutCancel)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/", h.Checkout.StartCheckout)
				r.Get("/success", h.Checkout.CheckoutSuccess)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/books", func(r chi.Router) {
				r.Get("/", h.Books.ListBooks)
				r.Get("/{book_id}", h.Books.GetBook)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Post("/items/{line_id}/increment", h.Cart.IncrementItem)
				r.Post("/items/{line_id}/decrement", h.Cart.DecrementItem)
				r.Delete("/items/{line_id}", h.Cart.RemoveItem)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListOrders)
				r.Get("/{order_id}", h.Orders.GetOrder)
			})
			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", h.Favorites.ListFavorites)
				r.Post("/{book_id}", h.Favorites.AddFavorite)
				r.Delete("/{book_id}", h.Favorites.RemoveFavorite)
			})
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", h.Profile.GetProfile)
				r.Put("/", h.Profile.UpdateProfile)
			})
		})
	})

	return r
}
