package invoices

import "github.com/go-chi/chi/v5"

// MountRoutes registers authenticated invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Get("/invoices/aging", h.Aging)
	r.Get("/invoices/{id}", h.Show)
	r.Get("/invoices/{id}/pdf", h.PDF)
	r.Post("/invoices", h.CreateFromQuote)
	r.Post("/invoices/{id}/send", h.Send)
	r.Post("/invoices/{id}/payments", h.RegisterPayment)
	r.Post("/invoices/{id}/void", h.Void)
}
