package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	limiter := newProfileRateLimiter(h.cfg.SubmitRatePerMinute, h.cfg.SubmitBurst)

	r.Route("/v1/onboarding", func(r chi.Router) {
		r.Use(Authenticate(h.cfg.JWTSecret))
		r.Get("/", h.GetOnboarding)
		r.Get("/documents", h.ListDocuments)
		r.With(limiter.Middleware).Post("/documents", h.SubmitDocuments)
		r.Post("/profile/complete", h.CompleteProfile)
	})

	return r
}
