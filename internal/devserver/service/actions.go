package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"path"
	"strings"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
)

// MaxDocumentSize bounds uploaded leave documents.
const MaxDocumentSize = 5 << 20

// SendInvoice records that the invoice went out to the given address and
// marks a draft as sent.
func (s *RecordService) SendInvoice(ctx context.Context, actor Actor, id, to, message string) (domain.Record, error) {
	if _, err := mail.ParseAddress(strings.TrimSpace(to)); err != nil {
		return domain.Record{}, invalid("to", "is not a valid e-mail address")
	}
	k, err := s.kind(ctx, actor, KindInvoices)
	if err != nil {
		return domain.Record{}, err
	}

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := s.load(ctx, tx, actor, k, id)
		if err != nil {
			return err
		}
		if cur.Status == "CANCELLED" {
			return fmt.Errorf("%w: cancelled invoices cannot be sent", ErrConflict)
		}
		status := cur.Status
		if status == "DRAFT" {
			status = "SENT"
		}
		fields := cloneFields(cur.Fields)
		fields["sentTo"] = strings.TrimSpace(to)
		fields["sentAt"] = s.now().Format(dateLayout)
		rec, err = s.save(ctx, tx, actor, cur, status, fields, message)
		return err
	})
	return rec, err
}

// Decision is the outcome an approver records on a request.
type Decision struct {
	Approve    bool
	ApproverID string
	Remarks    string
}

// Decide approves or rejects a leave request or timesheet and notifies the
// company.
func (s *RecordService) Decide(ctx context.Context, actor Actor, name, id string, d Decision) (domain.Record, error) {
	if name != KindLeaves && name != KindTimesheets {
		return domain.Record{}, ErrNotFound
	}
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return domain.Record{}, err
	}
	if !actor.CanApprove() {
		return domain.Record{}, ErrForbidden
	}
	if !d.Approve && name == KindLeaves && strings.TrimSpace(d.Remarks) == "" {
		return domain.Record{}, invalid("reason", "is required")
	}
	if d.ApproverID == "" {
		d.ApproverID = actor.UserID
	}

	status, verb := "REJECTED", "rejected"
	if d.Approve {
		status, verb = "APPROVED", "approved"
	}

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		cur, err := s.load(ctx, tx, actor, k, id)
		if err != nil {
			return err
		}
		if cur.Status == "CONVERTED" {
			return fmt.Errorf("%w: %s %s was already converted", ErrConflict, k.Singular, id)
		}

		fields := cloneFields(cur.Fields)
		fields["approverId"] = d.ApproverID
		fields["decidedAt"] = s.now().Format(dateLayout)
		if d.Remarks != "" {
			if name == KindLeaves {
				fields["decisionReason"] = d.Remarks
			} else {
				fields["remarks"] = d.Remarks
			}
		}
		rec, err = s.save(ctx, tx, actor, cur, status, fields, d.Remarks)
		if err != nil {
			return err
		}

		return s.notify(ctx, tx, actor, cur.String("employeeId"), strings.ToUpper(k.Singular),
			fmt.Sprintf("%s %s %s", strings.ToUpper(k.Singular[:1])+k.Singular[1:], id, verb))
	})
	return rec, err
}

// notify stores an in-app notification addressed to userID, or to the whole
// company when userID is empty.
func (s *RecordService) notify(ctx context.Context, st store.Store, actor Actor, userID, typ, message string) error {
	k, _ := LookupKind(KindNotifications)
	fields := map[string]any{
		"type":    typ,
		"channel": "IN_APP",
		"message": message,
		"read":    false,
	}
	if userID != "" {
		fields["userId"] = userID
	}
	_, err := s.insert(ctx, st, actor, k, fields)
	return err
}

// ConvertQuote creates a draft invoice from a quote and marks the quote
// converted.
func (s *RecordService) ConvertQuote(ctx context.Context, actor Actor, id string) (domain.Record, error) {
	quotes, err := s.kind(ctx, actor, KindQuotes)
	if err != nil {
		return domain.Record{}, err
	}
	invoices, err := s.kind(ctx, actor, KindInvoices)
	if err != nil {
		return domain.Record{}, err
	}

	var invoice domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		quote, err := s.load(ctx, tx, actor, quotes, id)
		if err != nil {
			return err
		}
		if quote.Status == "CONVERTED" {
			return fmt.Errorf("%w: quote %s was already converted", ErrConflict, id)
		}

		amount := quote.Number("amount")
		label := quote.String("quoteNumber")
		if label == "" {
			label = quote.ID
		}
		invoice, err = s.insert(ctx, tx, actor, invoices, s.invoiceFields(map[string]any{
			"clientName":           quote.String("client"),
			"subtotal":             amount,
			"total":                amount,
			"notes":                quote.String("notes"),
			"convertedFromQuoteId": quote.ID,
			"items": []any{map[string]any{
				"description": "Quote " + label,
				"quantity":    1.0,
				"unitPrice":   amount,
				"amount":      amount,
			}},
		}))
		if err != nil {
			return err
		}

		fields := cloneFields(quote.Fields)
		fields["convertedToInvoice"] = true
		fields["invoiceId"] = invoice.ID
		_, err = s.save(ctx, tx, actor, quote, "CONVERTED", fields, "converted to invoice "+invoice.ID)
		return err
	})
	return invoice, err
}

// ConvertTimesheets bills one or more timesheets on a single draft invoice,
// one line per timesheet.
func (s *RecordService) ConvertTimesheets(ctx context.Context, actor Actor, ids ...string) (domain.Record, error) {
	if len(ids) == 0 {
		return domain.Record{}, invalid("ids", "is required")
	}
	sheets, err := s.kind(ctx, actor, KindTimesheets)
	if err != nil {
		return domain.Record{}, err
	}
	invoices, err := s.kind(ctx, actor, KindInvoices)
	if err != nil {
		return domain.Record{}, err
	}

	var invoice domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		loaded := make([]domain.Record, 0, len(ids))
		items := make([]any, 0, len(ids))
		for _, id := range ids {
			sheet, err := s.load(ctx, tx, actor, sheets, id)
			if err != nil {
				return err
			}
			if sheet.Status == "CONVERTED" {
				return fmt.Errorf("%w: timesheet %s was already converted", ErrConflict, id)
			}
			desc := sheet.String("itemDesc")
			if desc == "" {
				desc = sheet.String("description")
			}
			if desc == "" {
				desc = "Timesheet " + sheet.String("date")
			}
			items = append(items, map[string]any{
				"description": strings.TrimSpace(desc),
				"quantity":    sheet.Number("totalHr"),
				"unitPrice":   0.0,
				"amount":      0.0,
			})
			loaded = append(loaded, sheet)
		}

		invoice, err = s.insert(ctx, tx, actor, invoices, s.invoiceFields(map[string]any{
			"items": items,
			"notes": "Converted from " + fmt.Sprint(len(ids)) + " timesheet(s)",
		}))
		if err != nil {
			return err
		}

		for _, sheet := range loaded {
			fields := cloneFields(sheet.Fields)
			fields["invoiceId"] = invoice.ID
			if _, err := s.save(ctx, tx, actor, sheet, "CONVERTED", fields, "converted to invoice "+invoice.ID); err != nil {
				return err
			}
		}
		return nil
	})
	return invoice, err
}

// invoiceFields adds the dates every generated invoice carries.
func (s *RecordService) invoiceFields(fields map[string]any) map[string]any {
	now := s.now()
	fields["issueDate"] = now.Format(dateLayout)
	fields["dueDate"] = now.AddDate(0, 0, 30).Format(dateLayout)
	return fields
}

// AttachLeaveDocument stores a supporting document for a leave request.
func (s *RecordService) AttachLeaveDocument(
	ctx context.Context,
	actor Actor,
	id, filename, contentType string,
	data []byte,
) (domain.Record, error) {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		return domain.Record{}, invalid("file", "needs a filename")
	}
	if len(data) > MaxDocumentSize {
		return domain.Record{}, invalid("file", "is larger than 5 MiB")
	}
	leaves, err := s.kind(ctx, actor, KindLeaves)
	if err != nil {
		return domain.Record{}, err
	}
	docs, _ := LookupKind(kindLeaveDocuments)

	var rec domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		leave, err := s.load(ctx, tx, actor, leaves, id)
		if err != nil {
			return err
		}
		doc, err := s.insert(ctx, tx, actor, docs, map[string]any{
			"leaveId":     leave.ID,
			"filename":    filename,
			"contentType": contentType,
			"data":        base64.StdEncoding.EncodeToString(data),
		})
		if err != nil {
			return err
		}

		fields := cloneFields(leave.Fields)
		fields["supportingDocumentId"] = doc.ID
		fields["supportingDocumentUrl"] = "/api/leaves/" + leave.ID + "/document"
		rec, err = s.save(ctx, tx, actor, leave, leave.Status, fields, "")
		return err
	})
	return rec, err
}

// LeaveDocument returns the document last attached to a leave request.
func (s *RecordService) LeaveDocument(ctx context.Context, actor Actor, id string) (Artifact, error) {
	leave, err := s.Get(ctx, actor, KindLeaves, id)
	if err != nil {
		return Artifact{}, err
	}
	docID := leave.String("supportingDocumentId")
	if docID == "" {
		return Artifact{}, ErrNotFound
	}
	docs, _ := LookupKind(kindLeaveDocuments)
	doc, err := s.load(ctx, s.Store, actor, docs, docID)
	if err != nil {
		return Artifact{}, err
	}
	data, err := base64.StdEncoding.DecodeString(doc.String("data"))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to decode leave document: %w", err)
	}
	contentType := doc.String("contentType")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return Artifact{Filename: doc.String("filename"), ContentType: contentType, Data: data}, nil
}

// MarkNotificationRead flags a notification as read.
func (s *RecordService) MarkNotificationRead(ctx context.Context, actor Actor, id string) (domain.Record, error) {
	return s.Update(ctx, actor, KindNotifications, id, map[string]any{"read": true})
}

// Contributions is the statutory breakdown stored on a payroll run.
type Contributions struct {
	CPFEmployer float64 `json:"cpfEmployer"`
	CPFEmployee float64 `json:"cpfEmployee"`
	SDL         float64 `json:"sdl"`
	GrossPay    float64 `json:"grossPay"`
	NetPay      float64 `json:"netPay"`
}

// PayrollContributions reports the contribution figures recorded on a
// payroll run; the reference backend does not compute them.
func (s *RecordService) PayrollContributions(ctx context.Context, actor Actor, id string) (Contributions, error) {
	rec, err := s.Get(ctx, actor, KindPayrolls, id)
	if err != nil {
		return Contributions{}, err
	}
	gross := rec.Number("basicPay") + rec.Number("variablePay") + rec.Number("allowances") + rec.Number("bonuses")
	c := Contributions{
		CPFEmployer: rec.Number("cpfEmployer"),
		CPFEmployee: rec.Number("cpfEmployee"),
		SDL:         rec.Number("sdl"),
		GrossPay:    gross,
	}
	c.NetPay = gross - rec.Number("deductions") - c.CPFEmployee
	return c, nil
}

// MoveTool checks a tool out to a user or back in, returning the
// transaction.
func (s *RecordService) MoveTool(ctx context.Context, actor Actor, toolID, userID string, checkout bool, remarks string) (domain.Record, error) {
	errs := fieldErrors{}
	errs.required("toolId", toolID)
	errs.required("userId", userID)
	if err := errs.err(); err != nil {
		return domain.Record{}, err
	}
	tools, err := s.kind(ctx, actor, KindTools)
	if err != nil {
		return domain.Record{}, err
	}
	txns, _ := LookupKind(KindToolTransactions)

	from, to, typ := "IN", "OUT", "CHECKOUT"
	if !checkout {
		from, to, typ = "OUT", "IN", "CHECKIN"
	}

	var txn domain.Record
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		tool, err := s.load(ctx, tx, actor, tools, toolID)
		if err != nil {
			return err
		}
		if tool.Status != from {
			return fmt.Errorf("%w: tool %s is %s", ErrConflict, toolID, tool.Status)
		}

		fields := cloneFields(tool.Fields)
		fields["lastUserId"] = userID
		if _, err := s.save(ctx, tx, actor, tool, to, fields, remarks); err != nil {
			return err
		}

		txnFields := map[string]any{
			"toolId": toolID,
			"userId": userID,
			"type":   typ,
			"date":   s.now().Format(dateLayout),
		}
		if remarks != "" {
			txnFields["remarks"] = remarks
		}
		txn, err = s.insert(ctx, tx, actor, txns, txnFields)
		return err
	})
	return txn, err
}

// ReplaceAppendixItems swaps the items of an appendix for the given list.
func (s *RecordService) ReplaceAppendixItems(ctx context.Context, actor Actor, appendixID string, items []map[string]any) ([]domain.Record, error) {
	appendices, err := s.kind(ctx, actor, KindAppendices)
	if err != nil {
		return nil, err
	}
	itemKind, err := s.kind(ctx, actor, KindAppendixItems)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Record, 0, len(items))
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := s.load(ctx, tx, actor, appendices, appendixID); err != nil {
			return err
		}

		existing, _, err := tx.Records().ListRecords(ctx, domain.RecordQuery{
			Kind:      itemKind.Name,
			CompanyID: actor.CompanyID,
			Match:     map[string]string{"appendixId": appendixID},
		})
		if err != nil {
			return err
		}
		for _, old := range existing {
			if err := tx.Records().DeleteRecord(ctx, itemKind.Name, actor.CompanyID, old.ID); err != nil {
				return err
			}
			if err := s.audit(ctx, tx, actor, old, "DELETE", "", "", "", "bulk update"); err != nil {
				return err
			}
		}

		for _, fields := range items {
			if fields == nil {
				fields = map[string]any{}
			}
			fields["appendixId"] = appendixID
			rec, err := s.insert(ctx, tx, actor, itemKind, fields)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
