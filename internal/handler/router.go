package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/birdieway/golf-league/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса гольф-лиги.
// Маршрут webhook-а не оборачивается в gzip: подпись события считается от
// исходных байтов тела.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify-webhook", h.VerifyWebhook)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.GzipMiddleware)

			r.Get("/health", h.Health)

			r.Post("/create-checkout", h.CreateCheckout)
			r.Post("/verify-payment", h.VerifyPayment)
			r.Post("/contact", h.Contact)

			r.Get("/tournaments", h.GetTournaments)
			r.Get("/tournaments/{id}", h.GetTournament)
			r.Get("/standings", h.GetStandings)
			r.Get("/pricing", h.GetPricing)

			r.Post("/admin/login", h.AdminLogin)
			r.Post("/admin/logout", h.AdminLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/registrations", h.GetRegistrations)
				r.Get("/registrations/summary", h.GetRegistrationsSummary)
				r.Delete("/registrations/{sessionID}", h.CancelRegistration)

				r.Post("/tournaments", h.CreateTournament)
				r.Put("/tournaments/{id}", h.UpdateTournament)
				r.Delete("/tournaments/{id}", h.DeleteTournament)

				r.Post("/standings", h.CreateStandingsEntry)
				r.Put("/standings/{id}", h.UpdateStandingsEntry)
				r.Delete("/standings/{id}", h.DeleteStandingsEntry)

				r.Put("/pricing/{league}", h.SetPricing)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
