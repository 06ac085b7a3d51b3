package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error envelope returned by every handler. Errors
// carries per-field validation messages.
type ErrorBody struct {
	Status  int                 `json:"status"`
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorBody whose error code defaults to the status text.
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	if errCode == "" {
		errCode = http.StatusText(code)
	}
	WriteJSON(w, code, ErrorBody{Status: code, Error: errCode, Message: message})
}

// WriteFieldErrors writes a 400 carrying per-field validation messages.
func WriteFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Status: http.StatusBadRequest,
		Error:  "validation_failed",
		Errors: fields,
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
