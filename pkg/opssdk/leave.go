package opssdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
)

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

var leaveStatuses = []LeaveStatus{LeavePending, LeaveApproved, LeaveRejected}

type LeaveRequest struct {
	ID                    ID          `json:"id"`
	CompanyID             ID          `json:"companyId,omitempty"`
	EmployeeID            ID          `json:"employeeId"`
	StartDate             string      `json:"startDate"`
	EndDate               string      `json:"endDate"`
	Type                  string      `json:"type,omitempty"`
	Status                LeaveStatus `json:"status,omitempty"`
	Reason                string      `json:"reason,omitempty"`
	LeaveBalance          float64     `json:"leaveBalance,omitempty"`
	ExpiryDate            string      `json:"expiryDate,omitempty"`
	ProRata               bool        `json:"proRata,omitempty"`
	SupportingDocumentURL string      `json:"supportingDocumentUrl,omitempty"`
}

func (l LeaveRequest) Validate() error {
	if err := requireEntity("leave request", l.ID); err != nil {
		return err
	}
	return checkStatus("leave request", l.Status, leaveStatuses...)
}

type LeaveRequestInput struct {
	EmployeeID ID     `json:"employeeId,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	Type       string `json:"type,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ProRata    bool   `json:"proRata,omitempty"`
}

func (in LeaveRequestInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("employeeId", in.EmployeeID)
	errs.required("startDate", in.StartDate)
	errs.date("startDate", in.StartDate)
	errs.required("endDate", in.EndDate)
	errs.date("endDate", in.EndDate)
	errs.dateOrder("startDate", in.StartDate, "endDate", in.EndDate)
	errs.required("type", in.Type)
	return errs.err()
}

type Leaves struct {
	*Resource[LeaveRequest, LeaveRequestInput]
}

func (r Leaves) Approve(ctx context.Context, id ID) (LeaveRequest, error) {
	return r.transition(ctx, id, "approve", nil)
}

// Reject declines the request; reason is shown to the employee.
func (r Leaves) Reject(ctx context.Context, id ID, reason string) (LeaveRequest, error) {
	if reason == "" {
		return LeaveRequest{}, validationError(map[string]string{"reason": requiredReason})
	}
	return r.transition(ctx, id, "reject", url.Values{"reason": {reason}})
}

// UploadDocument attaches a supporting document as multipart form field
// "file".
func (r Leaves) UploadDocument(ctx context.Context, id ID, filename string, doc io.Reader) (LeaveRequest, error) {
	if filename == "" {
		return LeaveRequest{}, validationError(map[string]string{"file": requiredReason})
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return LeaveRequest{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, doc); err != nil {
		return LeaveRequest{}, fmt.Errorf("failed to read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return LeaveRequest{}, fmt.Errorf("failed to encode form: %w", err)
	}

	var out LeaveRequest
	body := rawBody{contentType: mw.FormDataContentType(), data: buf.Bytes()}
	err = r.Action(ctx, id, "upload-doc", nil, body, &out)
	return out, err
}
