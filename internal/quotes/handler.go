package quotes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
	"github.com/FIXCOse/fixco-platform/internal/shared"
)

// Renderer turns a quote into a customer-facing PDF document.
type Renderer interface {
	RenderQuote(ctx context.Context, quote *Quote, customer *customers.Customer) ([]byte, error)
}

// Mailer queues the quote email sent to the customer.
type Mailer interface {
	EnqueueQuoteEmail(quote *Quote, recipient string) error
}

// Handler wires HTTP endpoints for quotes.
type Handler struct {
	logger          *slog.Logger
	service         *Service
	customerService *customers.Service
	renderer        Renderer
	mailer          Mailer
	validator       *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, customerService *customers.Service, renderer Renderer, mailer Mailer) *Handler {
	return &Handler{
		logger:          logger,
		service:         service,
		customerService: customerService,
		renderer:        renderer,
		mailer:          mailer,
		validator:       validator.New(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListQuotesRequest{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		s := QuoteStatus(status)
		req.Status = &s
	}
	if customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64); err == nil {
		req.CustomerID = &customerID
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		req.Offset = offset
	}

	quotes, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotes":     quotes,
		"pagination": shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	quote, ok := h.quoteFromPath(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if !h.validate(w, req) {
		return
	}

	ident, _ := shared.StaffFromContext(r.Context())
	quote, err := h.service.Create(r.Context(), req, ident.ID)
	if err != nil {
		h.logger.Error("create quote failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if !h.validate(w, req) {
		return
	}

	quote, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}

	quote, err := h.service.Send(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.mailer != nil {
		if customer, err := h.customerService.Get(r.Context(), quote.CustomerID); err == nil && customer.Email != nil {
			if err := h.mailer.EnqueueQuoteEmail(quote, *customer.Email); err != nil {
				// The quote is already sent; a failed enqueue must not undo it.
				h.logger.Warn("enqueue quote email", slog.Any("error", err))
			}
		}
	}

	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Decline)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	quote, ok := h.quoteFromPath(w, r)
	if !ok {
		return
	}
	customer, err := h.customerService.Get(r.Context(), quote.CustomerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.renderer.RenderQuote(r.Context(), quote, customer)
	if err != nil {
		h.logger.Error("render quote pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "pdf rendering unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+quote.DocNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Preview runs the calculator for live form feedback. It is mounted without
// authentication so the public RUT calculator can use it, and must therefore
// never read or write state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if !h.validate(w, req) {
		return
	}

	totals, err := h.service.Preview(req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewPreviewResponse(totals))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (*Quote, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}
	quote, err := fn(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) quoteFromPath(w http.ResponseWriter, r *http.Request) (*Quote, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return nil, false
	}
	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	return quote, true
}

func (h *Handler) validate(w http.ResponseWriter, req any) bool {
	if err := h.validator.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			httpx.FieldProblem(w, fieldErrs[0].Field(), fieldErrs[0].Error())
			return false
		}
		httpx.RespondError(w, httpx.ErrValidation)
		return false
	}
	return true
}

// respondError surfaces pricing validation errors inline next to the
// offending field instead of as a generic failure.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		httpx.FieldProblem(w, verr.Field, verr.Error())
		return
	}
	httpx.RespondError(w, err)
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
