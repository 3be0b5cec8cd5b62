package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the API router. feed serves the live auction websocket and
// may be nil.
func (h *Handler) Routes(allowedOrigins []string, feed http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(h.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if feed != nil {
		r.Handle("/ws/auctions", feed)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(h.JWTAuthMiddleware)
				r.Get("/profile", h.Profile)
				r.Put("/profile", h.UpdateProfile)
				r.Put("/password", h.ChangePassword)
			})
		})

		r.Route("/auctions", func(r chi.Router) {
			r.Get("/", h.ListAuctions)
			r.With(h.OptionalAuthMiddleware).Get("/{id}", h.GetAuction)

			r.Group(func(r chi.Router) {
				r.Use(h.JWTAuthMiddleware)
				r.Post("/", h.CreateAuction)
				r.Post("/bids", h.SubmitBid)
				r.Get("/bids/mine", h.ListMyBids)
				r.Delete("/bids/{id}", h.CancelBid)
				r.Patch("/bids/{id}/status", h.SetBidStatus)
			})
		})
	})

	return r
}
