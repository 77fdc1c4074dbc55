package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"naturezabrindes/quote_backend/internal/app/config"
	"naturezabrindes/quote_backend/internal/app/http/handlers"
	"naturezabrindes/quote_backend/internal/app/http/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Storefront checkout.
		r.Post("/quotes", h.CreateQuote)
		r.Post("/quotes/v2", h.CreateQuote)
		r.Get("/email/preview", h.EmailPreview)

		r.Group(func(r chi.Router) {
			r.Use(middleware.InternalAuth(cfg.InternalToken))

			r.Get("/quotes", h.ListQuotes)
			r.Get("/quotes/stats/dashboard", h.DashboardStats)
			r.Get("/quotes/{id}", h.GetQuote)
			r.Put("/quotes/{id}/status", h.UpdateQuoteStatus)
			r.Delete("/quotes/{id}", h.DeleteQuote)
			r.Get("/quotes/{id}/pdf", h.QuotePDF)

			r.Post("/email/test", h.EmailTest)
			r.Get("/email/outbox", h.EmailOutbox)
		})
	})

	return r
}
