package opssdk

import (
	"context"
	"net/http"
	"net/url"
)

type TimesheetStatus string

const (
	TimesheetPending   TimesheetStatus = "PENDING"
	TimesheetSubmitted TimesheetStatus = "SUBMITTED"
	TimesheetApproved  TimesheetStatus = "APPROVED"
	TimesheetRejected  TimesheetStatus = "REJECTED"
	TimesheetConverted TimesheetStatus = "CONVERTED"
)

var timesheetStatuses = []TimesheetStatus{
	TimesheetPending, TimesheetSubmitted, TimesheetApproved, TimesheetRejected, TimesheetConverted,
}

type Timesheet struct {
	ID          ID              `json:"id"`
	CompanyID   ID              `json:"companyId,omitempty"`
	EmployeeID  ID              `json:"employeeId"`
	ProjectID   ID              `json:"projectId,omitempty"`
	TaskID      ID              `json:"taskId,omitempty"`
	Date        string          `json:"date,omitempty"`
	Trade       string          `json:"trade,omitempty"`
	RequestNo   string          `json:"requestNo,omitempty"`
	ItemDesc    string          `json:"itemDesc,omitempty"`
	Module      string          `json:"module,omitempty"`
	Subcode     string          `json:"subcode,omitempty"`
	InspDate    string          `json:"inspDate,omitempty"`
	StartTime   string          `json:"startTime,omitempty"`
	EndTime     string          `json:"endTime,omitempty"`
	Location    string          `json:"location,omitempty"`
	BaseHr      float64         `json:"baseHr"`
	OTHr        float64         `json:"otHr"`
	SatHr       float64         `json:"satHr"`
	SunHr       float64         `json:"sunHr"`
	TotalHr     float64         `json:"totalHr"`
	Description string          `json:"description,omitempty"`
	Remarks     string          `json:"remarks,omitempty"`
	Status      TimesheetStatus `json:"status,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

func (t Timesheet) Validate() error {
	if err := requireEntity("timesheet", t.ID); err != nil {
		return err
	}
	return checkStatus("timesheet", t.Status, timesheetStatuses...)
}

type TimesheetInput struct {
	EmployeeID  ID      `json:"employeeId,omitempty"`
	ProjectID   ID      `json:"projectId,omitempty"`
	TaskID      ID      `json:"taskId,omitempty"`
	Date        string  `json:"date,omitempty"`
	Trade       string  `json:"trade,omitempty"`
	RequestNo   string  `json:"requestNo,omitempty"`
	ItemDesc    string  `json:"itemDesc,omitempty"`
	Module      string  `json:"module,omitempty"`
	Subcode     string  `json:"subcode,omitempty"`
	InspDate    string  `json:"inspDate,omitempty"`
	StartTime   string  `json:"startTime,omitempty"`
	EndTime     string  `json:"endTime,omitempty"`
	Location    string  `json:"location,omitempty"`
	BaseHr      float64 `json:"baseHr,omitempty"`
	OTHr        float64 `json:"otHr,omitempty"`
	SatHr       float64 `json:"satHr,omitempty"`
	SunHr       float64 `json:"sunHr,omitempty"`
	Description string  `json:"description,omitempty"`
	Remarks     string  `json:"remarks,omitempty"`
}

func (in TimesheetInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("employeeId", in.EmployeeID)
	errs.date("date", in.Date)
	errs.date("inspDate", in.InspDate)
	errs.nonNegative("baseHr", in.BaseHr)
	errs.nonNegative("otHr", in.OTHr)
	errs.nonNegative("satHr", in.SatHr)
	errs.nonNegative("sunHr", in.SunHr)
	return errs.err()
}

type Timesheets struct {
	*Resource[Timesheet, TimesheetInput]
}

// Approve records approverID's approval with optional remarks.
func (r Timesheets) Approve(ctx context.Context, id, approverID ID, remarks string) (Timesheet, error) {
	return r.decide(ctx, id, "approve", approverID, remarks)
}

func (r Timesheets) Reject(ctx context.Context, id, approverID ID, remarks string) (Timesheet, error) {
	return r.decide(ctx, id, "reject", approverID, remarks)
}

func (r Timesheets) decide(ctx context.Context, id ID, verb string, approverID ID, remarks string) (Timesheet, error) {
	if approverID.IsZero() {
		return Timesheet{}, validationError(map[string]string{"approverId": requiredReason})
	}
	q := url.Values{}
	q.Set("approverId", approverID.String())
	if remarks != "" {
		q.Set("remarks", remarks)
	}
	return r.transition(ctx, id, verb, q)
}

// Convert turns an approved timesheet into an invoice.
func (r Timesheets) Convert(ctx context.Context, id ID) (Invoice, error) {
	var out Invoice
	err := r.Action(ctx, id, "convert", nil, nil, &out)
	return out, err
}

// BulkConvert converts several timesheets into one invoice.
func (r Timesheets) BulkConvert(ctx context.Context, ids ...ID) (Invoice, error) {
	if len(ids) == 0 {
		return Invoice{}, validationError(map[string]string{"ids": requiredReason})
	}
	var out Invoice
	err := r.s.call(ctx, http.MethodPost, r.path("bulk-convert"), nil, map[string][]ID{"ids": ids}, &out)
	return out, err
}

type Project struct {
	ID          ID     `json:"id"`
	CompanyID   ID     `json:"companyId,omitempty"`
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

func (p Project) Validate() error { return requireEntity("project", p.ID) }

type ProjectInput struct {
	Name        string `json:"name,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

func (in ProjectInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.date("startDate", in.StartDate)
	errs.date("endDate", in.EndDate)
	errs.dateOrder("startDate", in.StartDate, "endDate", in.EndDate)
	return errs.err()
}

type Task struct {
	ID          ID     `json:"id"`
	ProjectID   ID     `json:"projectId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (t Task) Validate() error { return requireEntity("task", t.ID) }

type TaskInput struct {
	ProjectID   ID     `json:"projectId,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (in TaskInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	return errs.err()
}

type (
	Projects = Resource[Project, ProjectInput]
	Tasks    = Resource[Task, TaskInput]
)
