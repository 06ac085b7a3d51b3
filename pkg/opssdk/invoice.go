package opssdk

import (
	"context"
	"net/http"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

var invoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled}

type Invoice struct {
	ID                   ID            `json:"id"`
	InvoiceNumber        string        `json:"invoiceNumber,omitempty"`
	CompanyID            ID            `json:"companyId,omitempty"`
	ClientID             ID            `json:"clientId,omitempty"`
	IssueDate            string        `json:"issueDate,omitempty"`
	DueDate              string        `json:"dueDate,omitempty"`
	Status               InvoiceStatus `json:"status,omitempty"`
	Subtotal             float64       `json:"subtotal"`
	TaxRate              float64       `json:"taxRate"`
	TaxAmount            float64       `json:"taxAmount"`
	DiscountRate         float64       `json:"discountRate"`
	DiscountAmount       float64       `json:"discountAmount"`
	Total                float64       `json:"total"`
	Notes                string        `json:"notes,omitempty"`
	TermsAndConditions   string        `json:"termsAndConditions,omitempty"`
	ConvertedFromQuoteID ID            `json:"convertedFromQuoteId,omitempty"`
	CreatedAt            string        `json:"createdAt,omitempty"`
	UpdatedAt            string        `json:"updatedAt,omitempty"`
	Items                []InvoiceItem `json:"items,omitempty"`
}

func (i Invoice) Validate() error {
	if err := requireEntity("invoice", i.ID); err != nil {
		return err
	}
	return checkStatus("invoice", i.Status, invoiceStatuses...)
}

type InvoiceItem struct {
	ID          ID      `json:"id,omitempty"`
	InvoiceID   ID      `json:"invoiceId,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
}

type InvoiceInput struct {
	ClientID           ID            `json:"clientId,omitempty"`
	IssueDate          string        `json:"issueDate,omitempty"`
	DueDate            string        `json:"dueDate,omitempty"`
	Status             InvoiceStatus `json:"status,omitempty"`
	Subtotal           float64       `json:"subtotal,omitempty"`
	TaxRate            float64       `json:"taxRate,omitempty"`
	DiscountRate       float64       `json:"discountRate,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	TermsAndConditions string        `json:"termsAndConditions,omitempty"`
	Items              []InvoiceItem `json:"items,omitempty"`
}

func (in InvoiceInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("clientId", in.ClientID)
	errs.required("issueDate", in.IssueDate)
	errs.date("issueDate", in.IssueDate)
	errs.required("dueDate", in.DueDate)
	errs.date("dueDate", in.DueDate)
	errs.dateOrder("issueDate", in.IssueDate, "dueDate", in.DueDate)
	errs.oneOf("status", string(in.Status), statusStrings(invoiceStatuses)...)
	errs.nonNegative("subtotal", in.Subtotal)
	errs.nonNegative("taxRate", in.TaxRate)
	errs.nonNegative("discountRate", in.DiscountRate)
	for _, item := range in.Items {
		if item.Description == "" {
			errs["items"] = "every item needs a description"
		}
		if item.Quantity <= 0 {
			errs["items"] = "every item needs a positive quantity"
		}
	}
	return errs.err()
}

// AuditEntry records one field change on an invoice.
type AuditEntry struct {
	ID         ID     `json:"id"`
	ParentID   ID     `json:"parentId,omitempty"`
	ParentType string `json:"parentType,omitempty"`
	Action     string `json:"action"`
	FieldName  string `json:"fieldName,omitempty"`
	OldValue   string `json:"oldValue,omitempty"`
	NewValue   string `json:"newValue,omitempty"`
	ChangedBy  string `json:"changedBy,omitempty"`
	ChangedAt  string `json:"changedAt,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

func (a AuditEntry) Validate() error { return requireEntity("audit entry", a.ID) }

// StatusChange records one status transition on an invoice.
type StatusChange struct {
	ID        ID     `json:"id"`
	ParentID  ID     `json:"parentId,omitempty"`
	OldStatus string `json:"oldStatus,omitempty"`
	NewStatus string `json:"newStatus"`
	ChangedBy string `json:"changedBy,omitempty"`
	ChangedAt string `json:"changedAt,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
}

func (c StatusChange) Validate() error { return requireEntity("status change", c.ID) }

// SendInvoiceRequest is the e-mail an invoice is sent with.
type SendInvoiceRequest struct {
	To      string `json:"to"`
	Message string `json:"message,omitempty"`
}

func (r SendInvoiceRequest) Validate() error {
	errs := fieldErrors{}
	errs.required("to", r.To)
	errs.email("to", r.To)
	return errs.err()
}

// Invoices adds invoice transitions and history to the generic collection.
type Invoices struct {
	*Resource[Invoice, InvoiceInput]
}

// Send e-mails the invoice.
func (r Invoices) Send(ctx context.Context, id ID, req SendInvoiceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return r.Action(ctx, id, "send", nil, req, nil)
}

func (r Invoices) UpdateStatus(ctx context.Context, id ID, status InvoiceStatus) (Invoice, error) {
	errs := fieldErrors{}
	errs.required("status", string(status))
	errs.oneOf("status", string(status), statusStrings(invoiceStatuses)...)
	if err := errs.err(); err != nil {
		return Invoice{}, err
	}

	var out Invoice
	err := r.subresource(ctx, http.MethodPut, id, "status", nil, map[string]InvoiceStatus{"status": status}, &out)
	return out, err
}

func (r Invoices) AuditTrail(ctx context.Context, id ID) ([]AuditEntry, error) {
	return listOf[AuditEntry](ctx, r.s, r.path(id.String(), "audit-trail"))
}

func (r Invoices) StatusHistory(ctx context.Context, id ID) ([]StatusChange, error) {
	return listOf[StatusChange](ctx, r.s, r.path(id.String(), "status-history"))
}

// Customer is an invoice recipient, served from /api/clients.
type Customer struct {
	ID            ID     `json:"id"`
	CompanyID     ID     `json:"companyId,omitempty"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
}

func (c Customer) Validate() error { return requireEntity("client", c.ID) }

type CustomerInput struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
}

func (in CustomerInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.email("email", in.Email)
	return errs.err()
}

type Customers = Resource[Customer, CustomerInput]
