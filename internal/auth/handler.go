package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/shared"
	"github.com/FIXCOse/fixco-platform/internal/staff"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	staff     *staff.Service
	tokens    *TokenStore
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, staffService *staff.Service, tokens *TokenStore) *Handler {
	return &Handler{
		logger:    logger,
		staff:     staffService,
		tokens:    tokens,
		validator: validator.New(),
	}
}

// MountRoutes registers the public login route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// MountProtectedRoutes registers routes that need an authenticated caller.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string       `json:"token"`
	Staff *staff.Staff `json:"staff"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	member, err := h.staff.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, staff.ErrInvalidCredentials) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	token, err := h.tokens.Issue(r.Context(), shared.StaffIdentity{ID: member.ID, Role: string(member.Role)})
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, Staff: member})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), bearerToken(r)); err != nil {
		h.logger.Warn("revoke token", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
