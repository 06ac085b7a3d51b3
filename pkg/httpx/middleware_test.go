package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAuthnAndRole(t *testing.T) {
	signer, err := jwtx.GenerateEdDSA("k1")
	require.NoError(t, err)
	verifier := jwtx.NewVerifierEdDSA(signer, "test")

	mint := func(role string, ttl time.Duration) string {
		tok, err := signer.Sign(jwtx.NewAccessClaims("u1", "c1", role, "jane", nil, ttl, "test", time.Now()))
		require.NoError(t, err)
		return tok
	}

	var seen jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), httpx.Authenticate(verifier), httpx.RequireRole("admin"))

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/companies/c1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := call("")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var body httpx.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "missing bearer token", body.Message)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, call("bearer "+mint("admin", time.Hour)).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := call("Bearer not.a.jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("expired token", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, call("Bearer "+mint("admin", -time.Minute)).Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, call("Bearer "+mint("employee", time.Hour)).Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, call("Bearer "+mint("admin", time.Hour)).Code)
		require.Equal(t, "c1", seen.CompanyID)
	})
}

func TestAuthenticateRequiresCompany(t *testing.T) {
	signer, err := jwtx.GenerateEdDSA("k1")
	require.NoError(t, err)
	verifier := jwtx.NewVerifierEdDSA(signer, "test")

	tok, err := signer.Sign(jwtx.NewAccessClaims("u1", "", "admin", "jane", nil, time.Hour, "test", time.Now()))
	require.NoError(t, err)

	h := httpx.Authenticate(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
