package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

// authMiddleware verifies the bearer token and stashes the claims in the
// request context. EventSource clients cannot set headers, so a token query
// parameter is accepted as a fallback for the SSE endpoint.
func authMiddleware(tm *security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				tokenString = strings.TrimPrefix(header, "Bearer ")
			} else if q := r.URL.Query().Get("token"); q != "" {
				tokenString = q
			}
			if tokenString == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error": map[string]any{"kind": domain.KindUnauthorized, "message": "missing bearer token"},
				})
				return
			}

			claims, err := tm.Validate(tokenString)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error": map[string]any{"kind": domain.KindUnauthorized, "message": "invalid token"},
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func claimsFrom(r *http.Request) *security.Claims {
	claims, _ := r.Context().Value(claimsKey).(*security.Claims)
	return claims
}

// requireAdmin writes the error response itself when the caller lacks the role.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*security.Claims, bool) {
	claims := claimsFrom(r)
	if claims == nil || !claims.IsAdmin() {
		writeError(w, domain.NewError(domain.KindUnauthorized, "admin role required"))
		return nil, false
	}
	return claims, true
}
