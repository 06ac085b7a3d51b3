package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

type recordsRepo struct {
	q querier
}

func scanRecord(row rowScanner) (domain.Record, error) {
	var (
		r                    domain.Record
		data                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.Kind, &r.CompanyID, &r.Status, &data, &createdAt, &updatedAt); err != nil {
		return domain.Record{}, err
	}
	if err := json.Unmarshal([]byte(data), &r.Fields); err != nil {
		return domain.Record{}, fmt.Errorf("failed to decode record %s: %w", r.ID, err)
	}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode record fields: %w", err)
	}
	return string(b), nil
}

func (r *recordsRepo) CreateRecord(ctx context.Context, rec domain.Record) error {
	data, err := encodeFields(rec.Fields)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO records (id, kind, company_id, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.CompanyID, rec.Status, data, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *recordsRepo) GetRecord(ctx context.Context, kind, companyID, id string) (domain.Record, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, kind, company_id, status, data, created_at, updated_at
		FROM records WHERE kind = ? AND company_id = ? AND id = ?`, kind, companyID, id)
	rec, err := scanRecord(row)
	if err != nil {
		return domain.Record{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *recordsRepo) ListRecords(ctx context.Context, q domain.RecordQuery) ([]domain.Record, int, error) {
	where := []string{"kind = ?", "company_id = ?"}
	args := []any{q.Kind, q.CompanyID}

	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.DateField != "" && q.From != "" {
		where = append(where, "json_extract(data, ?) >= ?")
		args = append(args, "$."+q.DateField, q.From)
	}
	if q.DateField != "" && q.To != "" {
		where = append(where, "json_extract(data, ?) <= ?")
		args = append(args, "$."+q.DateField, q.To)
	}

	keys := make([]string, 0, len(q.Match))
	for k := range q.Match {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, "CAST(json_extract(data, ?) AS TEXT) = ?")
		args = append(args, "$."+k, q.Match[k])
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, kind, company_id, status, data, created_at, updated_at
		FROM records WHERE ` + clause + ` ORDER BY created_at, id`
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *recordsRepo) UpdateRecord(ctx context.Context, rec domain.Record) error {
	data, err := encodeFields(rec.Fields)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE records SET status = ?, data = ?, updated_at = ?
		WHERE kind = ? AND company_id = ? AND id = ?`,
		rec.Status, data, toMillis(rec.UpdatedAt), rec.Kind, rec.CompanyID, rec.ID,
	)
	return requireAffected(res, err)
}

func (r *recordsRepo) DeleteRecord(ctx context.Context, kind, companyID, id string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM records WHERE kind = ? AND company_id = ? AND id = ?`, kind, companyID, id)
	return requireAffected(res, err)
}
