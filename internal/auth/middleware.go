package auth

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"sharedrop/internal/apperr"
	userctx "sharedrop/internal/context"
	"sharedrop/internal/httpx"
)

// Verifier looks for a token in the Authorization header or the jwt cookie
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie)
}

// RequireUser rejects requests without a valid token and stores the
// principal in the request context for the handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			httpx.WriteError(w, r, apperr.Unauthorized("auth.RequireUser", "Authentication required"))
			return
		}

		user := userctx.UserFromClaims(claims)
		if user == nil {
			httpx.WriteError(w, r, apperr.Unauthorized("auth.RequireUser", "Invalid token claims"))
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.WithUser(r.Context(), user)))
	})
}
