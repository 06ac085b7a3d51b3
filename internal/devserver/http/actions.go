package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

// ActionHandler serves the workflow routes that go beyond CRUD.
type ActionHandler struct {
	RecordService *service.RecordService
}

func (h *ActionHandler) HandleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		Status  string `json:"status"`
		Remarks string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadJSON(w)
		return
	}
	if body.Status == "" {
		body.Status = r.URL.Query().Get("status")
	}
	rec, err := h.RecordService.SetStatus(ctx, actorFrom(ctx), service.KindInvoices, r.PathValue("id"), body.Status, body.Remarks)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *ActionHandler) HandleInvoiceSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req opssdk.SendInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}
	rec, err := h.RecordService.SendInvoice(ctx, actorFrom(ctx), r.PathValue("id"), req.To, req.Message)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info("invoice sent", "invoice_id", rec.ID, "to", req.To)
	httpx.WriteJSON(w, http.StatusOK, rec)
}

// HandleHistory lists the audit trail or status history of a record.
func (h *ActionHandler) HandleHistory(kind, entryType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		entries, err := h.RecordService.History(ctx, actorFrom(ctx), kind, r.PathValue("id"), entryType)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if entryType == domain.HistoryStatus {
			httpx.WriteJSON(w, http.StatusOK, statusView(entries))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, auditView(kind, entries))
	}
}

func (h *ActionHandler) HandleQuoteConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := h.RecordService.ConvertQuote(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, inv)
}

// HandleDecide approves or rejects a leave request or timesheet. Remarks
// travel as "remarks" for timesheets and "reason" for leaves.
func (h *ActionHandler) HandleDecide(kind string, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		q := r.URL.Query()
		remarks := q.Get("remarks")
		if remarks == "" {
			remarks = q.Get("reason")
		}
		rec, err := h.RecordService.Decide(ctx, actorFrom(ctx), kind, r.PathValue("id"), service.Decision{
			Approve:    approve,
			ApproverID: q.Get("approverId"),
			Remarks:    remarks,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rec)
	}
}

func (h *ActionHandler) HandleTimesheetConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inv, err := h.RecordService.ConvertTimesheets(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, inv)
}

func (h *ActionHandler) HandleTimesheetBulkConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		IDs []opssdk.ID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadJSON(w)
		return
	}
	ids := make([]string, 0, len(body.IDs))
	for _, id := range body.IDs {
		ids = append(ids, id.String())
	}

	inv, err := h.RecordService.ConvertTimesheets(ctx, actorFrom(ctx), ids...)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, inv)
}

func (h *ActionHandler) HandleLeaveUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxDocumentSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Document is larger than 5 MiB")
			return
		}
		httpx.WriteFieldErrors(w, map[string][]string{"file": {"is required"}})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Failed to read document")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	rec, err := h.RecordService.AttachLeaveDocument(ctx, actorFrom(ctx), r.PathValue("id"), header.Filename, contentType, data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *ActionHandler) HandleLeaveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	art, err := h.RecordService.LeaveDocument(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

func (h *ActionHandler) HandleContributions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.RecordService.PayrollContributions(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

// HandleToolMove records a checkout or checkin of a tool.
func (h *ActionHandler) HandleToolMove(checkout bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		q := r.URL.Query()
		tx, err := h.RecordService.MoveTool(ctx, actorFrom(ctx), q.Get("toolId"), q.Get("userId"), checkout, q.Get("remarks"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, tx)
	}
}

// HandleToolTransactions lists every transaction, or those of one tool when
// the route carries an id.
func (h *ActionHandler) HandleToolTransactions(w http.ResponseWriter, r *http.Request) {
	p := service.ListParams{}
	if id := r.PathValue("id"); id != "" {
		p.Match = map[string]string{"toolId": id}
	}
	h.list(w, r, service.KindToolTransactions, p)
}

// HandleChildren lists the records of kind whose matchField equals the
// route id.
func (h *ActionHandler) HandleChildren(kind, matchField string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.list(w, r, kind, service.ListParams{
			Match: map[string]string{matchField: r.PathValue("id")},
		})
	}
}

func (h *ActionHandler) HandleCompanyNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Tenants cannot read each other's notifications
	if r.PathValue("id") != actorFrom(ctx).CompanyID {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}
	h.list(w, r, service.KindNotifications, service.ListParams{})
}

func (h *ActionHandler) list(w http.ResponseWriter, r *http.Request, kind string, p service.ListParams) {
	ctx := r.Context()

	page, err := h.RecordService.List(ctx, actorFrom(ctx), kind, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page.Items)
}

func (h *ActionHandler) HandleAppendixBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var items []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeBadJSON(w)
		return
	}
	recs, err := h.RecordService.ReplaceAppendixItems(ctx, actorFrom(ctx), r.PathValue("id"), items)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}

func (h *ActionHandler) HandleNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.RecordService.MarkNotificationRead(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
