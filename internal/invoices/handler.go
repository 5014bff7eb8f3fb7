package invoices

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

// Renderer turns an invoice into a customer-facing PDF document.
type Renderer interface {
	RenderInvoice(ctx context.Context, invoice *Invoice, customer *customers.Customer) ([]byte, error)
}

// Mailer queues the invoice email sent to the customer.
type Mailer interface {
	EnqueueInvoiceEmail(invoice *Invoice, recipient string) error
}

// Handler wires HTTP endpoints for invoices.
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
	req := ListInvoicesRequest{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		s := InvoiceStatus(status)
		req.Status = &s
	}
	if customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64); err == nil {
		req.CustomerID = &customerID
	}
	if quoteID, err := strconv.ParseInt(r.URL.Query().Get("quote_id"), 10, 64); err == nil {
		req.QuoteID = &quoteID
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		req.Offset = offset
	}

	invoices, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	invoice, ok := h.invoiceFromPath(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) CreateFromQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateFromQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if !h.validate(w, req) {
		return
	}

	ident, _ := shared.StaffFromContext(r.Context())
	invoice, err := h.service.CreateFromQuote(r.Context(), req, r.Header.Get("Idempotency-Key"), ident.ID)
	if err != nil {
		h.logger.Error("create invoice failed", slog.Any("error", err), slog.Int64("quote_id", req.QuoteID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	invoice, err := h.service.Send(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.mailer != nil {
		if customer, err := h.customerService.Get(r.Context(), invoice.CustomerID); err == nil && customer.Email != nil {
			if err := h.mailer.EnqueueInvoiceEmail(invoice, *customer.Email); err != nil {
				// The invoice is already sent; a failed enqueue must not undo it.
				h.logger.Warn("enqueue invoice email", slog.Any("error", err))
			}
		}
	}

	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	var req RegisterPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if !h.validate(w, req) {
		return
	}

	invoice, err := h.service.RegisterPayment(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.Void(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if parsed := parseDate(r.URL.Query().Get("as_of")); parsed != nil {
		asOf = *parsed
	}
	report, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		h.logger.Error("aging report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	invoice, ok := h.invoiceFromPath(w, r)
	if !ok {
		return
	}
	customer, err := h.customerService.Get(r.Context(), invoice.CustomerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.renderer.RenderInvoice(r.Context(), invoice, customer)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "pdf rendering unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+invoice.DocNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) invoiceFromPath(w http.ResponseWriter, r *http.Request) (*Invoice, bool) {
	id, ok := idFromPath(w, r)
	if !ok {
		return nil, false
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	return invoice, true
}

func idFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return 0, false
	}
	return id, true
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
