package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outbound request at
// debug level and failures at warn.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = FromContext(req.Context())
	}
	logger = logger.With(
		"req_id", req.Header.Get("X-Request-ID"),
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_client_request_failed", "duration_ms", duration, "err", err)
		return nil, err
	}

	logger.Debug("http_client_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
