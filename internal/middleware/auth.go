package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/unicatolica/registro-huellas/internal/auth"
)

type claimsKey struct{}

// RequireRole rejects requests without a valid Bearer token for one of roles.
// Browser WebSocket clients cannot set headers and may pass ?token= instead.
func RequireRole(issuer *auth.Issuer, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if strings.TrimSpace(token) == "" {
				writeJSONError(w, http.StatusUnauthorized, "❌ Token requerido")
				return
			}
			claims, err := issuer.Parse(strings.TrimSpace(token))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "❌ Token inválido o expirado")
				return
			}
			if !allowed[claims.Role] {
				writeJSONError(w, http.StatusForbidden, "❌ Acceso denegado")
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the token claims stored by RequireRole.
func ClaimsFrom(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("token")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
