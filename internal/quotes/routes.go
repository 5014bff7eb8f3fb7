package quotes

import "github.com/go-chi/chi/v5"

// MountRoutes registers authenticated quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotes", h.List)
	r.Get("/quotes/{id}", h.Show)
	r.Get("/quotes/{id}/pdf", h.PDF)
	r.Post("/quotes", h.Create)
	r.Patch("/quotes/{id}", h.Update)
	r.Post("/quotes/{id}/send", h.Send)
	r.Post("/quotes/{id}/accept", h.Accept)
	r.Post("/quotes/{id}/decline", h.Decline)
}

// MountPublicRoutes registers the stateless calculator used by the quote
// form and the public RUT marketing calculator.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/pricing/preview", h.Preview)
}
