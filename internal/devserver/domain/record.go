package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one document of a resource collection. Fields holds the
// collection specific attributes; the columns the backend reasons about are
// lifted out of it.
type Record struct {
	ID        string
	Kind      string
	CompanyID string
	Status    string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// reserved are the keys a client cannot set through Fields.
var reserved = []string{"id", "companyId", "status", "createdAt", "updatedAt"}

// StripReserved removes the keys owned by the backend from fields.
func StripReserved(fields map[string]any) {
	for _, k := range reserved {
		delete(fields, k)
	}
}

// String returns the named field as a string, or "" when absent.
func (r Record) String(field string) string {
	switch v := r.Fields[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Number returns the named field as a float, or 0 when absent.
func (r Record) Number(field string) float64 {
	if v, ok := r.Fields[field].(float64); ok {
		return v
	}
	return 0
}

// Document flattens the record into the JSON object clients see.
func (r Record) Document() map[string]any {
	doc := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc["id"] = r.ID
	doc["companyId"] = r.CompanyID
	if r.Status != "" {
		doc["status"] = r.Status
	}
	doc["createdAt"] = r.CreatedAt.UTC().Format(time.RFC3339)
	doc["updatedAt"] = r.UpdatedAt.UTC().Format(time.RFC3339)
	return doc
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// RecordQuery selects records of one kind within a company.
type RecordQuery struct {
	Kind      string
	CompanyID string
	Status    string

	// DateField is compared against From and To (inclusive, YYYY-MM-DD).
	DateField string
	From      string
	To        string

	// Match requires Fields[key] == value for every entry.
	Match map[string]string

	Offset int
	Limit  int // 0 means no limit
}

const (
	HistoryAudit  = "audit"
	HistoryStatus = "status"
)

// HistoryEntry is one audit-trail or status-history line of a record.
type HistoryEntry struct {
	ID         string
	CompanyID  string
	ParentKind string
	ParentID   string
	Type       string
	Action     string
	FieldName  string
	OldValue   string
	NewValue   string
	ChangedBy  string
	Remarks    string
	ChangedAt  time.Time
}
