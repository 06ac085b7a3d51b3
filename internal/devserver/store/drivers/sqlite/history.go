package sqlite

import (
	"context"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
)

type historyRepo struct {
	q querier
}

func (r *historyRepo) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO history (id, company_id, parent_kind, parent_id, entry_type, action,
			field_name, old_value, new_value, changed_by, remarks, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.ParentKind, e.ParentID, e.Type, e.Action,
		e.FieldName, e.OldValue, e.NewValue, e.ChangedBy, e.Remarks, toMillis(e.ChangedAt),
	)
	return err
}

func (r *historyRepo) ListHistory(
	ctx context.Context,
	companyID, parentKind, parentID, entryType string,
) ([]domain.HistoryEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, company_id, parent_kind, parent_id, entry_type, action,
			field_name, old_value, new_value, changed_by, remarks, changed_at
		FROM history
		WHERE company_id = ? AND parent_kind = ? AND parent_id = ? AND entry_type = ?
		ORDER BY changed_at, id`,
		companyID, parentKind, parentID, entryType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e         domain.HistoryEntry
			changedAt int64
		)
		if err := rows.Scan(
			&e.ID, &e.CompanyID, &e.ParentKind, &e.ParentID, &e.Type, &e.Action,
			&e.FieldName, &e.OldValue, &e.NewValue, &e.ChangedBy, &e.Remarks, &changedAt,
		); err != nil {
			return nil, err
		}
		e.ChangedAt = fromMillis(changedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
