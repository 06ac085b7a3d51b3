package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
)

// RecordHandler serves the CRUD routes of one collection.
type RecordHandler struct {
	RecordService *service.RecordService
	Kind          service.Kind
}

// listParams reads the common listing filters. page and size are only
// honoured together.
func listParams(r *http.Request) (service.ListParams, error) {
	q := r.URL.Query()
	p := service.ListParams{
		Status: q.Get("status"),
		From:   q.Get("startDate"),
		To:     q.Get("endDate"),
	}
	if q.Has("size") {
		size, err := strconv.Atoi(q.Get("size"))
		if err != nil {
			return p, &service.ValidationError{Fields: map[string][]string{"size": {"must be a number"}}}
		}
		p.Size = size
	}
	if q.Has("page") {
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil {
			return p, &service.ValidationError{Fields: map[string][]string{"page": {"must be a number"}}}
		}
		p.Page = page
	}
	return p, nil
}

func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := listParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.RecordService.List(ctx, actorFrom(ctx), h.Kind.Name, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, listingBody(page))
}

func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.RecordService.Get(ctx, actorFrom(ctx), h.Kind.Name, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeBadJSON(w)
		return
	}
	rec, err := h.RecordService.Create(ctx, actorFrom(ctx), h.Kind.Name, fields)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (h *RecordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadJSON(w)
		return
	}
	rec, err := h.RecordService.Update(ctx, actorFrom(ctx), h.Kind.Name, r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.RecordService.Delete(ctx, actorFrom(ctx), h.Kind.Name, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExport streams a rendered artifact such as a spreadsheet.
func (h *RecordHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	art, err := h.RecordService.Export(ctx, actorFrom(ctx), h.Kind.Name, r.PathValue("id"), r.PathValue("format"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

func writeArtifact(w http.ResponseWriter, art service.Artifact) {
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}
