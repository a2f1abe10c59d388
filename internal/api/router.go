/**
 * @description
 * HTTP router for the fundraising service. Routes mirror the public REST surface
 * of the crowdfunding API: projects, donations, gateway charges and the payment
 * gateway webhook.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: router and standard middleware.
 * - github.com/go-chi/cors: CORS handling for the browser frontend.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the fundraising routes.
// Charge-creating endpoints are rate limited per client IP when limiter is set.
func NewRouter(h *Handlers, limiter RateLimiter, paymentLimitPerMinute int) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token", "asaas-access-token"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjectsHandler)
			r.Post("/", h.CreateProjectHandler)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProjectHandler)
				r.Put("/", h.UpdateProjectHandler)
				r.Delete("/", h.DeleteProjectHandler)
				r.Get("/info", h.ProjectInfoHandler)
				r.Get("/ranking", h.DailyRankingHandler)
				r.Get("/fundraising-stats", h.FundraisingStatsHandler)
				r.Post("/troll-message", h.TrollMessageHandler)
				r.Get("/donates", h.ListProjectDonationsHandler)
			})
		})

		r.Route("/donates", func(r chi.Router) {
			r.Get("/", h.ListDonationsHandler)
			r.Post("/", h.CreateDonationHandler)

			r.Group(func(r chi.Router) {
				r.Use(RateLimitMiddleware(limiter, h.logger, "payment_charge", paymentLimitPerMinute, time.Minute))
				r.Post("/pix", h.CreatePixDonationHandler)
				r.Post("/boleto", h.CreateBoletoDonationHandler)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetDonationHandler)
				r.Put("/", h.UpdateDonationHandler)
				r.Delete("/", h.DeleteDonationHandler)
				r.Get("/status", h.DonationStatusHandler)
			})
		})

		r.Post("/webhooks/asaas", h.AsaasWebhookHandler)
		r.Post("/webhooks/asaas/test", h.AsaasTestWebhookHandler)
	})

	return r
}
