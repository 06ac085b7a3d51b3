package opssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Entity is a decoded backend record. Validate is the per-entity schema check
// applied to every response.
type Entity interface {
	Validate() error
}

// ListFilter narrows a collection read. Zero fields are not sent.
type ListFilter struct {
	StartDate string
	EndDate   string
	Status    string

	// Page is zero based and only sent when Size is set.
	Page int
	Size int

	// Extra carries module specific filters verbatim.
	Extra url.Values
}

func (f ListFilter) values() url.Values {
	q := url.Values{}
	for k, vs := range f.Extra {
		q[k] = append([]string(nil), vs...)
	}
	if f.StartDate != "" {
		q.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("endDate", f.EndDate)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Size > 0 {
		q.Set("page", strconv.Itoa(f.Page))
		q.Set("size", strconv.Itoa(f.Size))
	}
	return q
}

func (f ListFilter) validate() error {
	errs := fieldErrors{}
	errs.date("startDate", f.StartDate)
	errs.date("endDate", f.EndDate)
	errs.dateOrder("startDate", f.StartDate, "endDate", f.EndDate)
	if f.Page < 0 {
		errs["page"] = "must not be negative"
	}
	if f.Size < 0 {
		errs["size"] = "must not be negative"
	}
	return errs.err()
}

// Page is one read of a collection. Paged is false when the backend returned
// a bare list, in which case the totals describe just Items.
type Page[E any] struct {
	Items         []E   `json:"items"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Paged         bool  `json:"paged"`
}

// ExportFormat names a server rendered artifact.
type ExportFormat string

const (
	FormatExcel    ExportFormat = "excel"
	FormatPDF      ExportFormat = "pdf"
	FormatCalendar ExportFormat = "calendar"
)

// Extension is the file extension used for default filenames.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatCalendar:
		return "ics"
	default:
		return string(f)
	}
}

// Artifact is a downloaded export. Saving it is up to the caller.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Resource is the uniform client for one REST collection rooted at
// /api/{name}. E is the record type, C the payload for create and update.
type Resource[E Entity, C any] struct {
	s        *Session
	name     string
	singular string
	formats  []ExportFormat
}

// NewResource binds a collection to a session. singular names exported
// files; formats lists the exports the collection offers.
func NewResource[E Entity, C any](s *Session, name, singular string, formats ...ExportFormat) *Resource[E, C] {
	return &Resource[E, C]{s: s, name: name, singular: singular, formats: formats}
}

func (r *Resource[E, C]) Name() string { return r.name }

// Formats lists the export formats this collection offers.
func (r *Resource[E, C]) Formats() []ExportFormat {
	return append([]ExportFormat(nil), r.formats...)
}

func (r *Resource[E, C]) path(elems ...string) string {
	p := "/api/" + r.name
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

// List reads the collection. Every call goes to the backend.
func (r *Resource[E, C]) List(ctx context.Context, filter ListFilter) (Page[E], error) {
	if err := filter.validate(); err != nil {
		return Page[E]{}, err
	}
	return r.listAt(ctx, r.path(), filter.values())
}

func (r *Resource[E, C]) listAt(ctx context.Context, p string, query url.Values) (Page[E], error) {
	var raw json.RawMessage
	if err := r.s.call(ctx, http.MethodGet, p, query, nil, &raw); err != nil {
		return Page[E]{}, err
	}
	page, err := decodePage[E](raw)
	if err != nil {
		return Page[E]{}, decodeError(http.StatusOK, err)
	}
	return page, nil
}

// ListAny is List with the items boxed, for Collection.
func (r *Resource[E, C]) ListAny(ctx context.Context, filter ListFilter) (Page[any], error) {
	page, err := r.List(ctx, filter)
	if err != nil {
		return Page[any]{}, err
	}
	items := make([]any, len(page.Items))
	for i, item := range page.Items {
		items[i] = item
	}
	return Page[any]{
		Items:         items,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Paged:         page.Paged,
	}, nil
}

// GetAny is Get for Collection.
func (r *Resource[E, C]) GetAny(ctx context.Context, id ID) (any, error) {
	return r.Get(ctx, id)
}

// Get fetches one record; a missing record is an ErrNotFound.
func (r *Resource[E, C]) Get(ctx context.Context, id ID) (E, error) {
	var out E
	if id.IsZero() {
		return out, validationError(map[string]string{"id": requiredReason})
	}
	err := r.s.call(ctx, http.MethodGet, r.path(id.String()), nil, nil, &out)
	return out, err
}

// Create validates payload, posts it and returns the stored record.
func (r *Resource[E, C]) Create(ctx context.Context, payload C) (E, error) {
	var out E
	if v, ok := any(payload).(validator); ok {
		if err := v.Validate(); err != nil {
			return out, err
		}
	}
	err := r.s.call(ctx, http.MethodPost, r.path(), nil, payload, &out)
	return out, err
}

// Update sends the set fields of patch and returns the stored record.
func (r *Resource[E, C]) Update(ctx context.Context, id ID, patch C) (E, error) {
	var out E
	if id.IsZero() {
		return out, validationError(map[string]string{"id": requiredReason})
	}
	defer r.lockWrite(id)()

	err := r.s.call(ctx, http.MethodPut, r.path(id.String()), nil, patch, &out)
	return out, err
}

func (r *Resource[E, C]) Remove(ctx context.Context, id ID) error {
	if id.IsZero() {
		return validationError(map[string]string{"id": requiredReason})
	}
	defer r.lockWrite(id)()

	return r.s.call(ctx, http.MethodDelete, r.path(id.String()), nil, nil, nil)
}

// Action posts a named transition such as approve or convert. params travel
// in the query string, body (optional) as JSON, and the response is decoded
// into out when out is non-nil.
func (r *Resource[E, C]) Action(ctx context.Context, id ID, verb string, params url.Values, body, out any) error {
	if id.IsZero() {
		return validationError(map[string]string{"id": requiredReason})
	}
	if verb == "" || strings.Contains(verb, "/") {
		return validationError(map[string]string{"action": "must be a single path segment"})
	}
	defer r.lockWrite(id)()

	return r.s.call(ctx, http.MethodPost, r.path(id.String(), verb), params, body, out)
}

// subresource calls /api/{name}/{id}/{verb} with any method. Writes are
// serialised like Action.
func (r *Resource[E, C]) subresource(ctx context.Context, method string, id ID, verb string, query url.Values, body, out any) error {
	if id.IsZero() {
		return validationError(map[string]string{"id": requiredReason})
	}
	if method != http.MethodGet {
		defer r.lockWrite(id)()
	}
	return r.s.call(ctx, method, r.path(id.String(), verb), query, body, out)
}

// transition runs an action whose response is the updated record.
func (r *Resource[E, C]) transition(ctx context.Context, id ID, verb string, params url.Values) (E, error) {
	var out E
	err := r.Action(ctx, id, verb, params, nil, &out)
	return out, err
}

// Export downloads a server rendered artifact. Without a Content-Disposition
// filename it is named {singular}-{id}.{ext}.
func (r *Resource[E, C]) Export(ctx context.Context, id ID, format ExportFormat) (Artifact, error) {
	if id.IsZero() {
		return Artifact{}, validationError(map[string]string{"id": requiredReason})
	}
	if format == "" {
		return Artifact{}, validationError(map[string]string{"format": requiredReason})
	}

	sent := r.s.accessToken(ctx)
	resp, err := r.s.roundTrip(ctx, http.MethodGet, r.path(id.String(), string(format)), nil, nil)
	if err != nil {
		return Artifact{}, r.s.observe(ctx, sent, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Artifact{}, r.s.observe(ctx, sent, decodeJSON(resp, nil))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Artifact{}, &APIError{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "failed to read export", Err: err}
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = fmt.Sprintf("%s-%s.%s", r.singular, id, format.Extension())
	}
	return Artifact{
		Filename:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (r *Resource[E, C]) lockWrite(id ID) (unlock func()) {
	return r.s.serialize(r.name + "/" + id.String())
}

// attachmentName extracts a safe base filename from a Content-Disposition
// header, or "" if there is none.
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := path.Base(strings.ReplaceAll(params["filename"], `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// pageEnvelope is the paginated shape some collections return.
type pageEnvelope struct {
	Content       *json.RawMessage `json:"content"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
}

// decodePage accepts a bare JSON array or a page envelope, and validates
// every item.
func decodePage[E Entity](raw json.RawMessage) (Page[E], error) {
	var page Page[E]
	trimmed := bytes.TrimSpace(raw)

	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		page.Items = []E{}
		return page, nil

	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &page.Items); err != nil {
			return page, err
		}
		page.TotalElements = int64(len(page.Items))
		page.TotalPages = 1

	default:
		var env pageEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return page, err
		}
		if env.Content == nil {
			return page, errors.New("expected a list or a page with content")
		}
		if err := json.Unmarshal(*env.Content, &page.Items); err != nil {
			return page, err
		}
		page.TotalElements = env.TotalElements
		page.TotalPages = env.TotalPages
		page.Paged = true
	}

	if page.Items == nil {
		page.Items = []E{}
	}
	for i, item := range page.Items {
		if err := item.Validate(); err != nil {
			return page, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return page, nil
}

// listOf reads a plain list of records from an arbitrary path.
func listOf[E Entity](ctx context.Context, s *Session, p string) ([]E, error) {
	var raw json.RawMessage
	if err := s.call(ctx, http.MethodGet, p, nil, nil, &raw); err != nil {
		return nil, err
	}
	page, err := decodePage[E](raw)
	if err != nil {
		return nil, decodeError(http.StatusOK, err)
	}
	return page.Items, nil
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
