package api

import (
	"net/http"
	"time"

	"campaign-console/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

func Router(h *ConsoleHandler, logger zerolog.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Route("/console", func(r chi.Router) {
		r.Use(h.Sessions.Guard(writeError))

		r.Get("/me", h.Me)
		r.Get("/countries", h.Countries)

		r.Get("/campaigns", h.ListCampaigns)
		r.Post("/campaigns", h.CreateCampaign)
		r.Get("/campaigns/search", h.SearchCampaigns)
		r.Get("/campaigns/by-url", h.CampaignByURL)
		r.Get("/campaigns/{id}", h.GetCampaign)
		r.Patch("/campaigns/{id}", h.EditCampaign)
		r.Delete("/campaigns/{id}", h.DeleteCampaign)
		r.Post("/campaigns/{id}/toggle", h.ToggleCampaign)

		r.Get("/campaigns/{id}/payouts", h.ListPayouts)
		r.Post("/campaigns/{id}/payouts", h.CreatePayout)
		r.Put("/campaigns/{id}/payouts", h.SavePayouts)
		r.Patch("/payouts/{payoutID}", h.UpdatePayout)
		r.Delete("/payouts/{payoutID}", h.DeletePayout)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
