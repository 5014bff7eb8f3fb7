package workorders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/shared"
)

// Handler wires HTTP endpoints for work orders.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListWorkOrdersRequest{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		s := Status(status)
		req.Status = &s
	}
	if mode := r.URL.Query().Get("mode"); mode != "" {
		m := Mode(mode)
		req.Mode = &m
	}
	if customerID, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64); err == nil {
		req.CustomerID = &customerID
	}
	if assignedTo, err := strconv.ParseInt(r.URL.Query().Get("assigned_to"), 10, 64); err == nil {
		req.AssignedTo = &assignedTo
	}
	if mine := r.URL.Query().Get("mine"); mine == "true" {
		if ident, ok := shared.StaffFromContext(r.Context()); ok {
			req.AssignedTo = &ident.ID
		}
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		req.Offset = offset
	}

	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list work orders failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"work_orders": orders,
		"pagination":  shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			httpx.FieldProblem(w, fieldErrs[0].Field(), fieldErrs[0].Error())
			return
		}
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	ident, _ := shared.StaffFromContext(r.Context())
	order, err := h.service.Create(r.Context(), req, ident.ID)
	if err != nil {
		h.logger.Error("create work order failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) Offer(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	var req OfferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	order, err := h.service.Offer(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	h.identityTransition(w, r, h.service.Claim)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.identityTransition(w, r, h.service.Accept)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.identityTransition(w, r, h.service.Decline)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.identityTransition(w, r, h.service.Start)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.identityTransition(w, r, h.service.Complete)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) identityTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, shared.StaffIdentity) (*WorkOrder, error)) {
	id, ok := idFromPath(w, r)
	if !ok {
		return
	}
	ident, ok := shared.StaffFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	order, err := fn(r.Context(), id, ident)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func idFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid work order id")
		return 0, false
	}
	return id, true
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
