package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/stretchr/testify/require"
)

func proTenant(t *testing.T) (*fixture, Actor) {
	t.Helper()

	f := newFixture(t)
	actor, _ := f.tenant(t, "jane@acme.test")
	f.upgrade(t, actor, featuregate.Pro)
	return f, actor
}

func TestConvertQuote(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	quote, err := f.records.Create(ctx, actor, KindQuotes, map[string]any{
		"client":      "Globex",
		"quoteNumber": "Q-7",
		"amount":      1200.0,
	})
	require.NoError(t, err)

	inv, err := f.records.ConvertQuote(ctx, actor, quote.ID)
	require.NoError(t, err)
	require.Equal(t, "DRAFT", inv.Status)
	require.Equal(t, "Globex", inv.String("clientName"))
	require.Equal(t, 1200.0, inv.Number("total"))
	require.Equal(t, quote.ID, inv.String("convertedFromQuoteId"))
	require.NotEmpty(t, inv.String("issueDate"))

	items, ok := inv.Fields["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	quote, err = f.records.Get(ctx, actor, KindQuotes, quote.ID)
	require.NoError(t, err)
	require.Equal(t, "CONVERTED", quote.Status)
	require.Equal(t, inv.ID, quote.String("invoiceId"))

	_, err = f.records.ConvertQuote(ctx, actor, quote.ID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestConvertTimesheets(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	var ids []string
	for _, hours := range []float64{8, 6} {
		rec, err := f.records.Create(ctx, actor, KindTimesheets, map[string]any{
			"employeeId": "e-1",
			"date":       "2026-03-02",
			"baseHr":     hours,
			"itemDesc":   "Site inspection",
		})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	_, err := f.records.ConvertTimesheets(ctx, actor)
	require.Contains(t, fieldsOf(t, err), "ids")

	inv, err := f.records.ConvertTimesheets(ctx, actor, ids...)
	require.NoError(t, err)
	items, ok := inv.Fields["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	for _, id := range ids {
		sheet, err := f.records.Get(ctx, actor, KindTimesheets, id)
		require.NoError(t, err)
		require.Equal(t, "CONVERTED", sheet.Status)
		require.Equal(t, inv.ID, sheet.String("invoiceId"))
	}

	_, err = f.records.ConvertTimesheets(ctx, actor, ids[0])
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.records.Decide(ctx, actor, KindTimesheets, ids[0], Decision{Approve: true})
	require.ErrorIs(t, err, ErrConflict)
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	leave, err := f.records.Create(ctx, actor, KindLeaves, map[string]any{
		"employeeId": "e-1",
		"type":       "ANNUAL",
		"startDate":  "2026-11-02",
		"endDate":    "2026-11-04",
	})
	require.NoError(t, err)
	require.Equal(t, "PENDING", leave.Status)

	t.Run("employees cannot decide", func(t *testing.T) {
		employee := Actor{UserID: "someone", CompanyID: actor.CompanyID, Role: domain.RoleEmployee}
		_, err := f.records.Decide(ctx, employee, KindLeaves, leave.ID, Decision{Approve: true})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("rejecting a leave needs a reason", func(t *testing.T) {
		_, err := f.records.Decide(ctx, actor, KindLeaves, leave.ID, Decision{Approve: false})
		require.Contains(t, fieldsOf(t, err), "reason")
	})

	t.Run("only leaves and timesheets", func(t *testing.T) {
		_, err := f.records.Decide(ctx, actor, KindInvoices, leave.ID, Decision{Approve: true})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("approval notifies the employee", func(t *testing.T) {
		rec, err := f.records.Decide(ctx, actor, KindLeaves, leave.ID, Decision{Approve: true, Remarks: "enjoy"})
		require.NoError(t, err)
		require.Equal(t, "APPROVED", rec.Status)
		require.Equal(t, actor.UserID, rec.String("approverId"))
		require.Equal(t, "enjoy", rec.String("decisionReason"))

		page, err := f.records.List(ctx, actor, KindNotifications, ListParams{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		note := page.Items[0]
		require.Equal(t, "LEAVE", note.String("type"))
		require.Equal(t, "Leave "+leave.ID+" approved", note.String("message"))
		require.Equal(t, "e-1", note.String("userId"))
		require.Equal(t, false, note.Fields["read"])

		mine, err := f.records.List(ctx, actor, KindNotifications, ListParams{Match: map[string]string{"userId": "e-1"}})
		require.NoError(t, err)
		require.Len(t, mine.Items, 1)
		require.Equal(t, note.ID, mine.Items[0].ID)

		others, err := f.records.List(ctx, actor, KindNotifications, ListParams{Match: map[string]string{"userId": "e-2"}})
		require.NoError(t, err)
		require.Empty(t, others.Items)

		note, err = f.records.MarkNotificationRead(ctx, actor, note.ID)
		require.NoError(t, err)
		require.Equal(t, true, note.Fields["read"])
	})
}

func TestSendInvoice(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	inv, err := f.records.Create(ctx, actor, KindInvoices, invoice("2026-03-01", nil))
	require.NoError(t, err)

	_, err = f.records.SendInvoice(ctx, actor, inv.ID, "not an address", "")
	require.Contains(t, fieldsOf(t, err), "to")

	sent, err := f.records.SendInvoice(ctx, actor, inv.ID, "ap@globex.test", "please pay")
	require.NoError(t, err)
	require.Equal(t, "SENT", sent.Status)
	require.Equal(t, "ap@globex.test", sent.String("sentTo"))

	statuses, err := f.records.History(ctx, actor, KindInvoices, inv.ID, domain.HistoryStatus)
	require.NoError(t, err)
	require.Equal(t, "please pay", statuses[len(statuses)-1].Remarks)

	_, err = f.records.SetStatus(ctx, actor, KindInvoices, inv.ID, "CANCELLED", "")
	require.NoError(t, err)
	_, err = f.records.SendInvoice(ctx, actor, inv.ID, "ap@globex.test", "")
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.records.SetStatus(ctx, actor, KindInvoices, inv.ID, "LOST", "")
	require.Contains(t, fieldsOf(t, err), "status")
}

func TestMoveTool(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	tool, err := f.records.Create(ctx, actor, KindTools, map[string]any{"name": "Torque wrench"})
	require.NoError(t, err)
	require.Equal(t, "IN", tool.Status)

	_, err = f.records.MoveTool(ctx, actor, tool.ID, "u-1", false, "")
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.records.MoveTool(ctx, actor, "", "", true, "")
	fields := fieldsOf(t, err)
	require.Contains(t, fields, "toolId")
	require.Contains(t, fields, "userId")

	txn, err := f.records.MoveTool(ctx, actor, tool.ID, "u-1", true, "site B")
	require.NoError(t, err)
	require.Equal(t, "CHECKOUT", txn.String("type"))
	require.Equal(t, "site B", txn.String("remarks"))

	tool, err = f.records.Get(ctx, actor, KindTools, tool.ID)
	require.NoError(t, err)
	require.Equal(t, "OUT", tool.Status)
	require.Equal(t, "u-1", tool.String("lastUserId"))

	_, err = f.records.MoveTool(ctx, actor, tool.ID, "u-1", false, "")
	require.NoError(t, err)

	page, err := f.records.List(ctx, actor, KindToolTransactions, ListParams{Match: map[string]string{"toolId": tool.ID}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
}

func TestReplaceAppendixItems(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	appendix, err := f.records.Create(ctx, actor, KindAppendices, map[string]any{"timesheetId": "ts-1"})
	require.NoError(t, err)

	_, err = f.records.ReplaceAppendixItems(ctx, actor, appendix.ID, []map[string]any{
		{"description": "Inspect pump"},
		{"description": "Replace seal"},
		{"description": "Test run"},
	})
	require.NoError(t, err)

	items, err := f.records.ReplaceAppendixItems(ctx, actor, appendix.ID, []map[string]any{
		{"description": "Inspect pump", "status": "COMPLETED"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "COMPLETED", items[0].Status)

	page, err := f.records.List(ctx, actor, KindAppendixItems, ListParams{Match: map[string]string{"appendixId": appendix.ID}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = f.records.ReplaceAppendixItems(ctx, actor, appendix.ID, []map[string]any{{}})
	require.Contains(t, fieldsOf(t, err), "description")

	// a failed replacement leaves the previous items in place
	page, err = f.records.List(ctx, actor, KindAppendixItems, ListParams{Match: map[string]string{"appendixId": appendix.ID}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = f.records.ReplaceAppendixItems(ctx, actor, "missing", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveDocument(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	leave, err := f.records.Create(ctx, actor, KindLeaves, map[string]any{
		"employeeId": "e-1",
		"type":       "MEDICAL",
		"startDate":  "2026-11-02",
		"endDate":    "2026-11-02",
	})
	require.NoError(t, err)

	_, err = f.records.LeaveDocument(ctx, actor, leave.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.records.AttachLeaveDocument(ctx, actor, leave.ID, "big.pdf", "application/pdf", make([]byte, MaxDocumentSize+1))
	require.Contains(t, fieldsOf(t, err), "file")

	rec, err := f.records.AttachLeaveDocument(ctx, actor, leave.ID, `C:\scans\mc.pdf`, "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, "/api/leaves/"+leave.ID+"/document", rec.String("supportingDocumentUrl"))

	doc, err := f.records.LeaveDocument(ctx, actor, leave.ID)
	require.NoError(t, err)
	require.Equal(t, "mc.pdf", doc.Filename)
	require.Equal(t, "application/pdf", doc.ContentType)
	require.Equal(t, []byte("%PDF-1.4"), doc.Data)
	require.NotContains(t, CollectionNames(), kindLeaveDocuments)
}

func TestPayrollContributions(t *testing.T) {
	ctx := context.Background()
	f, actor := proTenant(t)

	run, err := f.records.Create(ctx, actor, KindPayrolls, map[string]any{
		"employeeId":  "e-1",
		"period":      "2026-03",
		"basicPay":    5000.0,
		"allowances":  500.0,
		"deductions":  100.0,
		"cpfEmployer": 935.0,
		"cpfEmployee": 1100.0,
		"sdl":         11.25,
	})
	require.NoError(t, err)

	c, err := f.records.PayrollContributions(ctx, actor, run.ID)
	require.NoError(t, err)
	require.Equal(t, Contributions{
		CPFEmployer: 935,
		CPFEmployee: 1100,
		SDL:         11.25,
		GrossPay:    5500,
		NetPay:      4300,
	}, c)
}
