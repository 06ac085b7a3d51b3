package opssdk

import (
	"context"
	"net/http"
)

type Appendix struct {
	ID          ID     `json:"id"`
	CompanyID   ID     `json:"companyId,omitempty"`
	TimesheetID ID     `json:"timesheetId"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func (a Appendix) Validate() error { return requireEntity("appendix", a.ID) }

type AppendixInput struct {
	TimesheetID ID     `json:"timesheetId,omitempty"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (in AppendixInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("timesheetId", in.TimesheetID)
	return errs.err()
}

type Appendices struct {
	*Resource[Appendix, AppendixInput]
}

// ByTimesheet lists the appendices attached to a timesheet.
func (r Appendices) ByTimesheet(ctx context.Context, timesheetID ID) ([]Appendix, error) {
	if timesheetID.IsZero() {
		return nil, validationError(map[string]string{"timesheetId": requiredReason})
	}
	return listOf[Appendix](ctx, r.s, r.path("timesheet", timesheetID.String()))
}

type AppendixItemStatus string

const (
	AppendixItemIncomplete AppendixItemStatus = "INCOMPLETE"
	AppendixItemCompleted  AppendixItemStatus = "COMPLETED"
)

type AppendixItem struct {
	ID          ID                 `json:"id"`
	AppendixID  ID                 `json:"appendixId"`
	Description string             `json:"description"`
	Status      AppendixItemStatus `json:"status,omitempty"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`
}

func (a AppendixItem) Validate() error {
	if err := requireEntity("appendix item", a.ID); err != nil {
		return err
	}
	return checkStatus("appendix item", a.Status, AppendixItemIncomplete, AppendixItemCompleted)
}

type AppendixItemInput struct {
	ID          ID                 `json:"id,omitempty"`
	AppendixID  ID                 `json:"appendixId,omitempty"`
	Description string             `json:"description,omitempty"`
	Status      AppendixItemStatus `json:"status,omitempty"`
}

func (in AppendixItemInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("appendixId", in.AppendixID)
	errs.required("description", in.Description)
	errs.oneOf("status", string(in.Status), string(AppendixItemIncomplete), string(AppendixItemCompleted))
	return errs.err()
}

type AppendixItems struct {
	*Resource[AppendixItem, AppendixItemInput]
}

func (r AppendixItems) ByAppendix(ctx context.Context, appendixID ID) ([]AppendixItem, error) {
	if appendixID.IsZero() {
		return nil, validationError(map[string]string{"appendixId": requiredReason})
	}
	return listOf[AppendixItem](ctx, r.s, r.path("appendix", appendixID.String()))
}

// BulkUpdate replaces the items of an appendix in one request.
func (r AppendixItems) BulkUpdate(ctx context.Context, appendixID ID, items []AppendixItemInput) ([]AppendixItem, error) {
	if appendixID.IsZero() {
		return nil, validationError(map[string]string{"appendixId": requiredReason})
	}
	for i := range items {
		if items[i].AppendixID.IsZero() {
			items[i].AppendixID = appendixID
		}
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
	}
	defer r.s.serialize("appendices/" + appendixID.String())()

	var raw []AppendixItem
	err := r.s.call(ctx, http.MethodPut, r.path("bulk", appendixID.String()), nil, items, &raw)
	if err != nil {
		return nil, err
	}
	for _, item := range raw {
		if err := item.Validate(); err != nil {
			return nil, decodeError(http.StatusOK, err)
		}
	}
	return raw, nil
}
