package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/xuri/excelize/v2"
)

// ErrFormatUnavailable is returned for formats a collection advertises but
// the reference backend cannot render.
var ErrFormatUnavailable = errors.New("export format not available")

// Artifact is a rendered download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	contentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCalendar = "text/calendar; charset=utf-8"
)

// Export renders one record in format.
func (s *RecordService) Export(ctx context.Context, actor Actor, name, id, format string) (Artifact, error) {
	k, err := s.kind(ctx, actor, name)
	if err != nil {
		return Artifact{}, err
	}
	if !k.offers(format) {
		return Artifact{}, ErrNotFound
	}
	rec, err := s.load(ctx, s.Store, actor, k, id)
	if err != nil {
		return Artifact{}, err
	}

	switch format {
	case FormatExcel:
		data, err := renderSpreadsheet(k, rec)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Filename: k.Singular + "-" + rec.ID + ".xlsx", ContentType: contentTypeXLSX, Data: data}, nil
	case FormatCalendar:
		return Artifact{
			Filename:    k.Singular + "-" + rec.ID + ".ics",
			ContentType: contentTypeCalendar,
			Data:        renderCalendar(k, rec, s.now()),
		}, nil
	default:
		return Artifact{}, fmt.Errorf("%w: %s", ErrFormatUnavailable, format)
	}
}

// renderSpreadsheet writes the record as field/value rows. A list of
// objects under "items" gets a second sheet with one row per item.
func renderSpreadsheet(k Kind, rec domain.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	summarySheet := sheetName(k.Singular)
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Field", "Value"}); err != nil {
		return nil, err
	}

	doc := rec.Document()
	items, _ := doc["items"].([]any)
	delete(doc, "items")

	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &[]any{key, cellValue(doc[key])}); err != nil {
			return nil, err
		}
	}

	if len(items) > 0 {
		if err := writeItemsSheet(f, items); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func writeItemsSheet(f *excelize.File, items []any) error {
	const sheet = "Items"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	colSet := map[string]struct{}{}
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			for key := range m {
				colSet[key] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(colSet))
	for key := range colSet {
		cols = append(cols, key)
	}
	sort.Strings(cols)

	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, it := range items {
		m, _ := it.(map[string]any)
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = cellValue(m[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(v any) any {
	switch v := v.(type) {
	case nil:
		return ""
	case string, float64, bool:
		return v
	default:
		return domain.Record{Fields: map[string]any{"v": v}}.String("v")
	}
}

// sheetName fits s into the 31 character sheet name limit.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, s)
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}

// renderCalendar writes an iCalendar file with one all-day event spanning
// startDate to endDate (or date).
func renderCalendar(k Kind, rec domain.Record, now time.Time) []byte {
	start := rec.String("startDate")
	if start == "" {
		start = rec.String("date")
	}
	end := rec.String("endDate")
	if end == "" {
		end = start
	}

	startDay, err := time.Parse(dateLayout, start)
	if err != nil {
		startDay = now
	}
	endDay, err := time.Parse(dateLayout, end)
	if err != nil || endDay.Before(startDay) {
		endDay = startDay
	}

	summary := strings.ToUpper(k.Singular[:1]) + k.Singular[1:]
	if t := rec.String("type"); t != "" {
		summary += ": " + t
	}
	if rec.Status != "" {
		summary += " (" + rec.Status + ")"
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//bizops//opsdev//EN",
		"CALSCALE:GREGORIAN",
		"BEGIN:VEVENT",
		"UID:" + rec.ID + "@bizops",
		"DTSTAMP:" + now.UTC().Format("20060102T150405Z"),
		"DTSTART;VALUE=DATE:" + startDay.Format("20060102"),
		// DTEND is exclusive for all-day events
		"DTEND;VALUE=DATE:" + endDay.AddDate(0, 0, 1).Format("20060102"),
		"SUMMARY:" + escapeICS(summary),
	}
	if reason := rec.String("reason"); reason != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICS(reason))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

func escapeICS(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)
	return r.Replace(s)
}
