package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/FIXCOse/fixco-platform/internal/platform/httpx"
	"github.com/FIXCOse/fixco-platform/internal/shared"
)

// Middleware resolves the Authorization header to a staff identity in context.
func Middleware(store *TokenStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			ident, err := store.Resolve(r.Context(), token)
			if err != nil {
				if err != ErrTokenInvalid {
					logger.Error("resolve token", slog.Any("error", err))
				}
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithStaff(r.Context(), ident)))
		})
	}
}

// RequireRole rejects requests whose identity does not carry the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := shared.StaffFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if ident.Role != role {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
