package opssdk

import (
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

const requiredReason = "required"

// fieldErrors accumulates per-field problems while validating a payload.
type fieldErrors map[string]string

func (f fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = requiredReason
	}
}

func (f fieldErrors) requiredID(field string, id ID) {
	if id.IsZero() {
		f[field] = requiredReason
	}
}

func (f fieldErrors) email(field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		f[field] = "must be a valid email address"
	}
}

func (f fieldErrors) date(field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		f[field] = "must be a YYYY-MM-DD date"
	}
}

// dateOrder flags end when both dates parse and end falls before start.
func (f fieldErrors) dateOrder(startField, start, endField, end string) {
	s, err1 := time.Parse(DateLayout, start)
	e, err2 := time.Parse(DateLayout, end)
	if err1 == nil && err2 == nil && e.Before(s) {
		f[endField] = "must not be before " + startField
	}
}

func (f fieldErrors) positive(field string, v float64) {
	if v <= 0 {
		f[field] = "must be greater than zero"
	}
}

func (f fieldErrors) nonNegative(field string, v float64) {
	if v < 0 {
		f[field] = "must not be negative"
	}
}

func (f fieldErrors) oneOf(field, value string, allowed ...string) {
	if value != "" && !slices.Contains(allowed, value) {
		f[field] = "must be one of " + strings.Join(allowed, ", ")
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return validationError(f)
}

// errMissingID is what entity validation reports for records without an id.
var errMissingID = errors.New("missing id")

// requireEntity is the shared schema check for decoded records.
func requireEntity(kind string, id ID) error {
	if id.IsZero() {
		return fmt.Errorf("%s: %w", kind, errMissingID)
	}
	return nil
}

// checkStatus rejects statuses outside the known set.
func checkStatus[S ~string](kind string, status S, allowed ...S) error {
	if status == "" || slices.Contains(allowed, status) {
		return nil
	}
	return fmt.Errorf("%s: unknown status %q", kind, status)
}
