package opssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// rawBody sends pre-encoded bytes (multipart uploads) instead of JSON.
type rawBody struct {
	contentType string
	data        []byte
}

// url builds a complete URL from the base URL, path and query.
func (c *SDKClient) url(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newRequest builds a request with a JSON body (when body is non-nil) and a
// fresh X-Request-ID.
func (c *SDKClient) newRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Request, error) {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case rawBody:
		reader, contentType = bytes.NewReader(b.data), b.contentType
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader, contentType = bytes.NewReader(raw), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *SDKClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	return resp, nil
}

// doRequest performs an unauthenticated request.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

// doAuthRequest performs a request carrying the session's bearer token.
func (s *Session) doAuthRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Response, error) {
	token, ok := s.tokens.Access(ctx)
	if !ok {
		return nil, &APIError{Kind: KindUnauthenticated, Message: "not logged in"}
	}

	req, err := s.client.newRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return s.client.send(req)
}

// roundTrip is doAuthRequest plus the policy's retry for reads. A transient
// 5xx that exhausts its retries comes back as the parsed error; other
// statuses are returned to the caller as is.
func (s *Session) roundTrip(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (*http.Response, error) {
	policy := s.client.Policy
	if method != http.MethodGet || !policy.RetryIdempotent || policy.MaxRetries == 0 {
		return s.doAuthRequest(ctx, method, path, query, body)
	}

	var resp *http.Response
	operation := func() error {
		r, err := s.doAuthRequest(ctx, method, path, query, body)
		if err != nil {
			if KindOf(err) == KindNetwork && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		if transientStatus(r.StatusCode) {
			raw, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			return parseErrorResponse(r.StatusCode, raw)
		}
		resp = r
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialBackoff
	eb.MaxInterval = policy.MaxBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, policy.MaxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		s.client.Logger.Debug("retrying request", "method", method, "path", path, "wait", wait, "err", err)
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// transientStatus reports server errors worth retrying. 501 and 505 describe
// the server itself and will not change on a second attempt.
func transientStatus(code int) bool {
	switch code {
	case http.StatusNotImplemented, http.StatusHTTPVersionNotSupported:
		return false
	}
	return code >= http.StatusInternalServerError
}

// call performs an authenticated round trip and decodes the JSON response
// into out (which may be nil). Unauthenticated failures end the session.
func (s *Session) call(
	ctx context.Context,
	method, path string,
	query url.Values,
	body, out any,
) error {
	sent := s.accessToken(ctx)
	resp, err := s.roundTrip(ctx, method, path, query, body)
	if err == nil {
		err = decodeJSON(resp, out)
	}
	return s.observe(ctx, sent, err)
}

// accessToken is the token the next request will carry, or "".
func (s *Session) accessToken(ctx context.Context) string {
	token, _ := s.tokens.Access(ctx)
	return token
}

// observe forces a logout on authentication failures and passes err through.
// sent is the access token the failed request carried; a 401 for a token that
// has since been replaced leaves the session alone.
func (s *Session) observe(ctx context.Context, sent string, err error) error {
	if errors.Is(err, ErrUnauthenticated) {
		s.expire(ctx, sent)
	}
	return err
}

// validator is implemented by every decoded entity.
type validator interface {
	Validate() error
}

// decodeJSON reads the body once, converts non-2xx responses to typed errors
// and decodes the rest into target. Empty bodies leave target untouched.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(unwrapData(body), target); err != nil {
		return decodeError(resp.StatusCode, err)
	}
	if v, ok := target.(validator); ok {
		if err := v.Validate(); err != nil {
			return decodeError(resp.StatusCode, err)
		}
	}
	return nil
}

// unwrapData strips the {success, message, data} envelope some services use.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return body
	}
	data, hasData := fields["data"]
	_, hasID := fields["id"]
	if !hasData || hasID || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return body
	}
	return data
}
