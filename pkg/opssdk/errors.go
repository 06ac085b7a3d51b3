package opssdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// ============================================================================
// Error kinds
// ============================================================================

// Kind classifies every failure surfaced by the SDK.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
	KindNetwork
	KindServer
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against an *APIError's Kind.
var (
	ErrUnauthenticated = errors.New("opssdk: unauthenticated")
	ErrForbidden       = errors.New("opssdk: forbidden")
	ErrNotFound        = errors.New("opssdk: not found")
	ErrValidation      = errors.New("opssdk: validation failed")
	ErrConflict        = errors.New("opssdk: conflict")
	ErrNetwork         = errors.New("opssdk: network failure")
	ErrServer          = errors.New("opssdk: server error")
	ErrDecode          = errors.New("opssdk: undecodable response")
	ErrUnknown         = errors.New("opssdk: unknown failure")
)

var kindSentinels = map[Kind]error{
	KindUnknown:         ErrUnknown,
	KindUnauthenticated: ErrUnauthenticated,
	KindForbidden:       ErrForbidden,
	KindNotFound:        ErrNotFound,
	KindValidation:      ErrValidation,
	KindConflict:        ErrConflict,
	KindNetwork:         ErrNetwork,
	KindServer:          ErrServer,
	KindDecode:          ErrDecode,
}

// ============================================================================
// APIError
// ============================================================================

const (
	defaultErrorMessage = "An unexpected error occurred. Please try again."
	noResponseMessage   = "No response received from server. Please check your connection."
)

// APIError is the single error type returned for failed calls. StatusCode is
// zero when no response was received or the failure happened client side.
type APIError struct {
	Kind        Kind
	StatusCode  int
	Message     string
	FieldErrors FieldErrors
	Body        []byte
	Err         error
}

// Error renders the message with the status prefix users are used to seeing.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultErrorMessage
	}

	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "Unauthorized: " + msg
	case e.StatusCode == http.StatusForbidden:
		return "Forbidden: " + msg
	case e.StatusCode == http.StatusNotFound:
		return "Not Found: " + msg
	case e.StatusCode >= http.StatusInternalServerError:
		return "Server Error: " + msg
	case e.Err != nil && e.Kind != KindNetwork:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the per-kind sentinels.
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf extracts the Kind of err, KindUnknown if it is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// FieldErrors maps a field name to its messages. The backend sends either a
// single string or a list per field; both decode.
type FieldErrors map[string][]string

func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(FieldErrors, len(raw))
	for field, v := range raw {
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			out[field] = many
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = []string{one}
	}
	*f = out
	return nil
}

// Messages flattens every field message in field order.
func (f FieldErrors) Messages() []string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	slices.Sort(fields)

	var out []string
	for _, k := range fields {
		out = append(out, f[k]...)
	}
	return out
}

// ============================================================================
// Second factor challenge
// ============================================================================

// ErrorCodeTwoFactorRequired is the error discriminator the backend sends
// alongside HTTP 409 when a login needs a one-time code.
const ErrorCodeTwoFactorRequired = "two_factor_required"

// legacyChallengeMarker is how older backends announce the challenge in a
// 200 response message.
const legacyChallengeMarker = "2fa code sent"

// TwoFactorRequiredError is returned by a login that must be completed with
// a one-time code.
type TwoFactorRequiredError struct {
	Username string
	Message  string
}

func (e *TwoFactorRequiredError) Error() string {
	if e.Message != "" {
		return "two-factor verification required: " + e.Message
	}
	return "two-factor verification required"
}

func isLegacyChallenge(message string) bool {
	return strings.Contains(strings.ToLower(message), legacyChallengeMarker)
}

// ============================================================================
// Response parsing
// ============================================================================

// errorBody is the union of the error envelopes the backends produce.
type errorBody struct {
	Status            int         `json:"status"`
	Error             string      `json:"error"`
	Message           string      `json:"message"`
	Errors            FieldErrors `json:"errors"`
	TwoFactorRequired bool        `json:"twoFactorRequired"`
	Username          string      `json:"username"`
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb) // non-JSON bodies fall back to defaults

	if status == http.StatusConflict && (eb.Error == ErrorCodeTwoFactorRequired || eb.TwoFactorRequired) {
		return &TwoFactorRequiredError{Username: eb.Username, Message: eb.Message}
	}

	msg := eb.Message
	if msg == "" {
		if messages := eb.Errors.Messages(); len(messages) > 0 {
			msg = strings.Join(messages, ". ")
		}
	}

	return &APIError{
		Kind:        kindForStatus(status, eb),
		StatusCode:  status,
		Message:     msg,
		FieldErrors: eb.Errors,
		Body:        body,
	}
}

func kindForStatus(status int, eb errorBody) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= http.StatusInternalServerError:
		return KindServer
	case len(eb.Errors) > 0:
		return KindValidation
	default:
		return KindUnknown
	}
}

func networkError(err error) error {
	return &APIError{Kind: KindNetwork, Message: noResponseMessage, Err: err}
}

func decodeError(status int, err error) error {
	return &APIError{Kind: KindDecode, StatusCode: status, Message: "failed to decode response", Err: err}
}

// validationError reports client-side payload problems without a round trip.
func validationError(fields map[string]string) error {
	fe := make(FieldErrors, len(fields))
	for k, v := range fields {
		fe[k] = []string{v}
	}
	return &APIError{
		Kind:        KindValidation,
		Message:     strings.Join(fe.Messages(), ". "),
		FieldErrors: fe,
	}
}
