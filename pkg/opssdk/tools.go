package opssdk

import (
	"context"
	"net/http"
	"net/url"
)

type ToolStatus string

const (
	ToolIn      ToolStatus = "IN"
	ToolOut     ToolStatus = "OUT"
	ToolLost    ToolStatus = "LOST"
	ToolMissing ToolStatus = "MISSING"
)

var toolStatuses = []ToolStatus{ToolIn, ToolOut, ToolLost, ToolMissing}

type Tool struct {
	ID                  ID         `json:"id"`
	CompanyID           ID         `json:"companyId,omitempty"`
	Name                string     `json:"name"`
	SerialNumber        string     `json:"serialNumber,omitempty"`
	AssetTag            string     `json:"assetTag,omitempty"`
	Make                string     `json:"make,omitempty"`
	Model               string     `json:"model,omitempty"`
	Status              ToolStatus `json:"status,omitempty"`
	Location            string     `json:"location,omitempty"`
	PurchaseDate        string     `json:"purchaseDate,omitempty"`
	MaintenanceDate     string     `json:"maintenanceDate,omitempty"`
	MaintenanceSchedule string     `json:"maintenanceSchedule,omitempty"`
	MaintenanceReminder bool       `json:"maintenanceReminder,omitempty"`
	ImageURL            string     `json:"imageUrl,omitempty"`
	ResponsiblePerson   string     `json:"responsiblePerson,omitempty"`
	LastUserID          ID         `json:"lastUserId,omitempty"`
	Overdue             bool       `json:"overdue,omitempty"`
	Lost                bool       `json:"lost,omitempty"`
	Missing             bool       `json:"missing,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

func (t Tool) Validate() error {
	if err := requireEntity("tool", t.ID); err != nil {
		return err
	}
	return checkStatus("tool", t.Status, toolStatuses...)
}

type ToolInput struct {
	Name                string     `json:"name,omitempty"`
	SerialNumber        string     `json:"serialNumber,omitempty"`
	AssetTag            string     `json:"assetTag,omitempty"`
	Make                string     `json:"make,omitempty"`
	Model               string     `json:"model,omitempty"`
	Status              ToolStatus `json:"status,omitempty"`
	Location            string     `json:"location,omitempty"`
	PurchaseDate        string     `json:"purchaseDate,omitempty"`
	MaintenanceDate     string     `json:"maintenanceDate,omitempty"`
	MaintenanceSchedule string     `json:"maintenanceSchedule,omitempty"`
	MaintenanceReminder bool       `json:"maintenanceReminder,omitempty"`
	ResponsiblePerson   string     `json:"responsiblePerson,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

func (in ToolInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.oneOf("status", string(in.Status), statusStrings(toolStatuses)...)
	errs.date("purchaseDate", in.PurchaseDate)
	errs.date("maintenanceDate", in.MaintenanceDate)
	return errs.err()
}

type ToolTransactionType string

const (
	ToolCheckOut ToolTransactionType = "CHECKOUT"
	ToolCheckIn  ToolTransactionType = "CHECKIN"
)

type ToolTransaction struct {
	ID        ID                  `json:"id"`
	ToolID    ID                  `json:"toolId"`
	CompanyID ID                  `json:"companyId,omitempty"`
	UserID    ID                  `json:"userId"`
	Type      ToolTransactionType `json:"type"`
	Date      string              `json:"date,omitempty"`
	Remarks   string              `json:"remarks,omitempty"`
}

func (t ToolTransaction) Validate() error {
	if err := requireEntity("tool transaction", t.ID); err != nil {
		return err
	}
	return checkStatus("tool transaction", t.Type, ToolCheckOut, ToolCheckIn)
}

type Tools struct {
	*Resource[Tool, ToolInput]
}

// CheckOut hands the tool to userID.
func (r Tools) CheckOut(ctx context.Context, toolID, userID ID, remarks string) (ToolTransaction, error) {
	return r.move(ctx, "checkout", toolID, userID, remarks)
}

// CheckIn returns the tool from userID.
func (r Tools) CheckIn(ctx context.Context, toolID, userID ID, remarks string) (ToolTransaction, error) {
	return r.move(ctx, "checkin", toolID, userID, remarks)
}

func (r Tools) move(ctx context.Context, verb string, toolID, userID ID, remarks string) (ToolTransaction, error) {
	errs := fieldErrors{}
	errs.requiredID("toolId", toolID)
	errs.requiredID("userId", userID)
	if err := errs.err(); err != nil {
		return ToolTransaction{}, err
	}
	defer r.lockWrite(toolID)()

	q := url.Values{}
	q.Set("toolId", toolID.String())
	q.Set("userId", userID.String())
	if remarks != "" {
		q.Set("remarks", remarks)
	}

	var out ToolTransaction
	err := r.s.call(ctx, http.MethodPost, "/api/tool-transactions/"+verb, q, nil, &out)
	return out, err
}

// Transactions lists the check-in/check-out history of one tool.
func (r Tools) Transactions(ctx context.Context, toolID ID) ([]ToolTransaction, error) {
	if toolID.IsZero() {
		return nil, validationError(map[string]string{"toolId": requiredReason})
	}
	return listOf[ToolTransaction](ctx, r.s, "/api/tool-transactions/tool/"+url.PathEscape(toolID.String()))
}

// AllTransactions lists every tool transaction of the company.
func (r Tools) AllTransactions(ctx context.Context) ([]ToolTransaction, error) {
	return listOf[ToolTransaction](ctx, r.s, "/api/tool-transactions")
}
