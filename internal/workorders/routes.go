package workorders

import "github.com/go-chi/chi/v5"

// MountRoutes registers authenticated work order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/work-orders", h.List)
	r.Get("/work-orders/{id}", h.Show)
	r.Post("/work-orders", h.Create)
	r.Post("/work-orders/{id}/claim", h.Claim)
	r.Post("/work-orders/{id}/offer", h.Offer)
	r.Post("/work-orders/{id}/accept", h.Accept)
	r.Post("/work-orders/{id}/decline", h.Decline)
	r.Post("/work-orders/{id}/start", h.Start)
	r.Post("/work-orders/{id}/complete", h.Complete)
	r.Post("/work-orders/{id}/cancel", h.Cancel)
}
