package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/idx"
)

// MaxPageSize caps the size of a paged listing.
const MaxPageSize = 500

const dateLayout = "2006-01-02"

// RecordService serves the generic resource collections. Every call is
// scoped to the actor's company and gated by the company's plan.
type RecordService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *RecordService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// kind resolves a collection and checks the actor's plan unlocks it.
func (s *RecordService) kind(ctx context.Context, actor Actor, name string) (Kind, error) {
	k, ok := LookupKind(name)
	if !ok {
		return Kind{}, ErrNotFound
	}
	if k.Feature == "" {
		return k, nil
	}
	company, err := s.Store.Companies().GetCompany(ctx, actor.CompanyID)
	if err != nil {
		return Kind{}, fmt.Errorf("failed to load company: %w", err)
	}
	if !featuregate.HasAccess(company.Plan, k.Feature) {
		return Kind{}, ErrFeatureLocked
	}
	return k, nil
}

type ListParams struct {
	Status string
	From   string
	To     string
	Page   int // zero based
	Size   int // 0 returns everything unpaged
	Match  map[string]string
}

type RecordPage struct {
	Items []domain.Record
	Total int
	Page  int
	Size  int
	Paged bool
}

func (p RecordPage) TotalPages() int {
	if !p.Paged || p.Size <= 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p ListParams) validate() error {
	errs := fieldErrors{}
	checkDate := func(field, v string) {
		if v == "" {
			return
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			errs.add(field, "must be a YYYY-MM-DD date")
		}
	}
	checkDate("startDate", p.From)
	checkDate("endDate", p.To)
	if p.From != "" && p.To != "" && p.From > p.To {
		errs.add("endDate", "must not be before startDate")
	}
	if p.Page < 0 {
		errs.add("page", "must not be negative")
	}
	if p.Size < 0 {
		errs.add("size", "must not be negative")
	}
	return errs.err()
}

func (s *RecordService) List(ctx context.Context, actor Actor, name string, p ListParams) (RecordPage, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return RecordPage{}, err
	}
	if err := p.validate(); err != nil {
		return RecordPage{}, err
	}
	if p.Status != "" && !k.allowsStatus(p.Status) {
		return RecordPage{}, invalid("status", "is not a status of "+k.Name)
	}

	q := domain.RecordQuery{
		Kind:      k.Name,
		CompanyID: actor.CompanyID,
		Status:    p.Status,
		DateField: k.DateField,
		From:      p.From,
		To:        p.To,
		Match:     p.Match,
	}
	size := min(p.Size, MaxPageSize)
	if size > 0 {
		q.Limit = size
		q.Offset = p.Page * size
	}

	items, total, err := s.Store.Records().ListRecords(ctx, q)
	if err != nil {
		return RecordPage{}, err
	}
	return RecordPage{Items: items, Total: total, Page: p.Page, Size: size, Paged: size > 0}, nil
}

func (s *RecordService) Get(ctx context.Context, actor Actor, name, id string) (domain.Record, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return domain.Record{}, err
	}
	return s.load(ctx, s.Store, actor, k, id)
}

func (s *RecordService) load(ctx context.Context, st store.Store, actor Actor, k Kind, id string) (domain.Record, error) {
	rec, err := st.Records().GetRecord(ctx, k.Name, actor.CompanyID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Record{}, ErrNotFound
	}
	return rec, err
}

func (s *RecordService) Create(ctx context.Context, actor Actor, name string, fields map[string]any) (domain.Record, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return domain.Record{}, err
	}

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		rec, err = s.insert(ctx, tx, actor, k, fields)
		return err
	})
	return rec, err
}

// insert validates and stores a new record of k using st.
func (s *RecordService) insert(ctx context.Context, st store.Store, actor Actor, k Kind, fields map[string]any) (domain.Record, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	status, err := takeStatus(k, fields, k.Initial)
	if err != nil {
		return domain.Record{}, err
	}
	domain.StripReserved(fields)
	if err := validateFields(k, fields); err != nil {
		return domain.Record{}, err
	}
	normalize(k, fields)

	now := s.now()
	rec := domain.Record{
		ID:        idx.NewAt(now).String(),
		Kind:      k.Name,
		CompanyID: actor.CompanyID,
		Status:    status,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.Records().CreateRecord(ctx, rec); err != nil {
		return domain.Record{}, err
	}
	if err := s.audit(ctx, st, actor, rec, "CREATE", "", "", "", ""); err != nil {
		return domain.Record{}, err
	}
	if status != "" {
		if err := s.statusChange(ctx, st, actor, rec, "", status, ""); err != nil {
			return domain.Record{}, err
		}
	}
	return rec, nil
}

// Update merges patch into the stored fields. A null value removes a field.
func (s *RecordService) Update(ctx context.Context, actor Actor, name, id string, patch map[string]any) (domain.Record, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return domain.Record{}, err
	}

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := s.load(ctx, tx, actor, k, id)
		if err != nil {
			return err
		}
		status, err := takeStatus(k, patch, cur.Status)
		if err != nil {
			return err
		}
		domain.StripReserved(patch)

		fields := make(map[string]any, len(cur.Fields)+len(patch))
		for key, v := range cur.Fields {
			fields[key] = v
		}
		for key, v := range patch {
			if v == nil {
				delete(fields, key)
				continue
			}
			fields[key] = v
		}
		if err := validateFields(k, fields); err != nil {
			return err
		}
		normalize(k, fields)

		rec, err = s.save(ctx, tx, actor, cur, status, fields, "")
		return err
	})
	return rec, err
}

// save writes the new status and fields of cur and records what changed.
func (s *RecordService) save(
	ctx context.Context,
	st store.Store,
	actor Actor,
	cur domain.Record,
	status string,
	fields map[string]any,
	remarks string,
) (domain.Record, error) {
	next := cur
	next.Status = status
	next.Fields = fields
	next.UpdatedAt = s.now()
	if err := st.Records().UpdateRecord(ctx, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Record{}, ErrNotFound
		}
		return domain.Record{}, err
	}

	for _, key := range changedKeys(cur.Fields, fields) {
		if err := s.audit(ctx, st, actor, next, "UPDATE", key, cur.String(key), next.String(key), remarks); err != nil {
			return domain.Record{}, err
		}
	}
	if cur.Status != status {
		if err := s.statusChange(ctx, st, actor, next, cur.Status, status, remarks); err != nil {
			return domain.Record{}, err
		}
	}
	return next, nil
}

// Delete is restricted to admins and managers.
func (s *RecordService) Delete(ctx context.Context, actor Actor, name, id string) error {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return err
	}
	if !actor.CanApprove() {
		return ErrForbidden
	}
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := s.load(ctx, tx, actor, k, id)
		if err != nil {
			return err
		}
		if err := tx.Records().DeleteRecord(ctx, k.Name, actor.CompanyID, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, cur, "DELETE", "", "", "", "")
	})
}

// SetStatus moves a record to any status of its collection.
func (s *RecordService) SetStatus(ctx context.Context, actor Actor, name, id, status, remarks string) (domain.Record, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return domain.Record{}, err
	}
	if status == "" || len(k.Statuses) == 0 || !k.allowsStatus(status) {
		return domain.Record{}, invalid("status", "is not a status of "+k.Name)
	}

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := s.load(ctx, tx, actor, k, id)
		if err != nil {
			return err
		}
		rec, err = s.save(ctx, tx, actor, cur, status, cur.Fields, remarks)
		return err
	})
	return rec, err
}

// History returns the audit trail or status history of a record.
func (s *RecordService) History(ctx context.Context, actor Actor, name, id, entryType string) ([]domain.HistoryEntry, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.Store, actor, k, id); err != nil {
		return nil, err
	}
	return s.Store.History().ListHistory(ctx, actor.CompanyID, k.Name, id, entryType)
}

func (s *RecordService) audit(
	ctx context.Context,
	st store.Store,
	actor Actor,
	rec domain.Record,
	action, field, oldValue, newValue, remarks string,
) error {
	return st.History().AppendHistory(ctx, domain.HistoryEntry{
		ID:         idx.New().String(),
		CompanyID:  rec.CompanyID,
		ParentKind: rec.Kind,
		ParentID:   rec.ID,
		Type:       domain.HistoryAudit,
		Action:     action,
		FieldName:  field,
		OldValue:   oldValue,
		NewValue:   newValue,
		ChangedBy:  actor.UserID,
		Remarks:    remarks,
		ChangedAt:  s.now(),
	})
}

func (s *RecordService) statusChange(
	ctx context.Context,
	st store.Store,
	actor Actor,
	rec domain.Record,
	oldStatus, newStatus, remarks string,
) error {
	return st.History().AppendHistory(ctx, domain.HistoryEntry{
		ID:         idx.New().String(),
		CompanyID:  rec.CompanyID,
		ParentKind: rec.Kind,
		ParentID:   rec.ID,
		Type:       domain.HistoryStatus,
		Action:     "STATUS",
		OldValue:   oldStatus,
		NewValue:   newStatus,
		ChangedBy:  actor.UserID,
		Remarks:    remarks,
		ChangedAt:  s.now(),
	})
}

// takeStatus pulls "status" out of fields, falling back to def.
func takeStatus(k Kind, fields map[string]any, def string) (string, error) {
	raw, ok := fields["status"]
	if !ok || raw == nil {
		return def, nil
	}
	status, isString := raw.(string)
	if !isString {
		return "", invalid("status", "must be a string")
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return def, nil
	}
	if !k.allowsStatus(status) {
		return "", invalid("status", "is not a status of "+k.Name)
	}
	return status, nil
}

func validateFields(k Kind, fields map[string]any) error {
	errs := fieldErrors{}
	for _, name := range k.Required {
		switch v := fields[name].(type) {
		case nil:
			errs.add(name, "is required")
		case string:
			errs.required(name, v)
		}
	}
	for _, name := range k.Dates {
		v, ok := fields[name]
		if !ok || v == nil || v == "" {
			continue
		}
		str, isString := v.(string)
		if !isString {
			errs.add(name, "must be a YYYY-MM-DD date")
			continue
		}
		if _, err := time.Parse(dateLayout, str); err != nil {
			errs.add(name, "must be a YYYY-MM-DD date")
		}
	}
	return errs.err()
}

// normalize fills derived display fields.
func normalize(k Kind, fields map[string]any) {
	if k.Name == KindTimesheets {
		var total float64
		for _, key := range []string{"baseHr", "otHr", "satHr", "sunHr"} {
			if v, ok := fields[key].(float64); ok {
				total += v
			}
		}
		fields["totalHr"] = total
	}
}

func changedKeys(before, after map[string]any) []string {
	var out []string
	seen := map[string]struct{}{}
	for key, v := range after {
		seen[key] = struct{}{}
		if !reflect.DeepEqual(before[key], v) {
			out = append(out, key)
		}
	}
	for key := range before {
		if _, ok := seen[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
