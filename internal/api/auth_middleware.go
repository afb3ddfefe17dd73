package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/productwall/internal/auth"
	"github.com/onnwee/productwall/internal/middleware"
)

// RequireCurator guards merchandising write routes. It validates the Bearer
// token, requires an access token with the curator role, and stores the
// curator id in the request context for logging and rate limit keying.
func RequireCurator(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			unauthorized := func(msg string) {
				ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnauthorized)
				WriteError(w, ctx, http.StatusUnauthorized, ErrCodeUnauthorized, msg)
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized("missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized("authorization header must be a Bearer token")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					unauthorized("token has expired")
				} else {
					unauthorized("invalid token")
				}
				return
			}

			if claims.Type != auth.TokenTypeAccess || claims.Role != auth.RoleCurator {
				unauthorized("curator access token required")
				return
			}

			ctx := middleware.SetCuratorID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
