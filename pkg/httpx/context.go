package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

var (
	errNoBearer  = errors.New("missing bearer token")
	errNoCompany = errors.New("token is not bound to a company")
)

// ClaimsFromContext returns the claims placed by Authenticate.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func roleFromCtx(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Role
}

// BearerToken extracts the token from an "Authorization: Bearer" header. The
// scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errNoBearer
	}
	return token, nil
}

// Authenticate admits requests carrying a live access token for a tenant.
// The claims land in the context and the request logger gains user_id and
// company_id.
func Authenticate(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, err := BearerToken(r)
			if err != nil {
				writeBearerError(w, err.Error())
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				slogx.FromContext(ctx).Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}
			if err := claims.ValidateExpiry(); err != nil {
				writeBearerError(w, "token expired")
				return
			}
			if claims.CompanyID == "" {
				writeBearerError(w, errNoCompany.Error())
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			ctx = slogx.With(ctx, "user_id", claims.Subject, "company_id", claims.CompanyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge header plus the usual JSON error body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc)
}
