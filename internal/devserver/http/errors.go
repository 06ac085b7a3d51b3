package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

// writeServiceError maps service errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteFieldErrors(w, verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, service.ErrFeatureLocked):
		httpx.WriteError(w, http.StatusForbidden, "feature_locked", "Your plan does not include this module")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "You are not allowed to do that")
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrAccountExists):
		httpx.WriteError(w, http.StatusConflict, "account_exists", "An account with that username or e-mail already exists")
	case errors.Is(err, service.ErrFormatUnavailable):
		httpx.WriteError(w, http.StatusNotImplemented, "not_implemented", "This export format is not available")
	case errors.Is(err, service.ErrWrongPassword):
		httpx.WriteError(w, http.StatusBadRequest, "wrong_password", "Current password is incorrect")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid or expired verification code")
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "Refresh token is invalid or expired")
	default:
		log.Error("request failed", "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

func writeBadJSON(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
}
