package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielballan/auth-adventures/pkg/slogx"
	"github.com/danielballan/auth-adventures/pkg/tokenx"
)

// AuthnMiddleware authenticates requests carrying a Bearer access token.
// Anything that fails verification — bad signature, expiry, a refresh token
// presented where an access token belongs — gets a 401 before the handler
// runs.
func AuthnMiddleware(v tokenx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("token verify failed", "err", err)
				return
			}

			if err := claims.ValidateType(tokenx.TypeAccess); err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("non-access token presented as bearer", "type", claims.Type)
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c tokenx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
