package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/circularsync/gateway/internal/middleware"
)

// MountRoutes registers all gateway routes on the given chi router.
// DELETE routes require the current adminToken in X-Admin-Token when it is non-empty.
func MountRoutes(r chi.Router, h *Handlers, adminToken func() string, ws http.HandlerFunc) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)
	if ws != nil {
		r.Get("/ws", ws)
	}

	admin := middleware.AdminToken(adminToken, middleware.HeaderAdminToken)

	r.Route("/api", func(r chi.Router) {
		r.Get("/admin/material-verification/stats", h.GetVerificationStats)
		r.Get("/admin/material-submissions", h.GetSubmissions)
		r.Get("/warehouses/{id}/stats", h.GetWarehouseStats)
		r.Get("/users/{id}/profile", h.GetUserProfile)
		r.Get("/pricing/{materialType}/recommendation", h.GetPriceRecommendation)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Delete("/admin/material-verification/stats", h.DeleteVerificationStats)
			r.Delete("/admin/material-submissions", h.DeleteSubmissions)
			r.Delete("/warehouses/{id}/stats", h.DeleteWarehouseStats)
			r.Delete("/users/{id}/profile", h.DeleteUserProfile)
			r.Delete("/pricing/{materialType}/recommendation", h.DeletePriceRecommendation)
			r.Delete("/cache", h.DeleteCache)
		})
	})
}
