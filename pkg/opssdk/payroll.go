package opssdk

import (
	"context"
	"net/http"
)

type PayrollStatus string

const (
	PayrollPending   PayrollStatus = "PENDING"
	PayrollProcessed PayrollStatus = "PROCESSED"
	PayrollPaid      PayrollStatus = "PAID"
)

var payrollStatuses = []PayrollStatus{PayrollPending, PayrollProcessed, PayrollPaid}

type Payroll struct {
	ID                  ID            `json:"id"`
	CompanyID           ID            `json:"companyId,omitempty"`
	EmployeeID          ID            `json:"employeeId"`
	Period              string        `json:"period,omitempty"`
	PayCycle            string        `json:"payCycle,omitempty"`
	Amount              float64       `json:"amount"`
	BasicPay            float64       `json:"basicPay"`
	VariablePay         float64       `json:"variablePay"`
	Allowances          float64       `json:"allowances"`
	Bonuses             float64       `json:"bonuses"`
	Deductions          float64       `json:"deductions"`
	CPFEmployer         float64       `json:"cpfEmployer"`
	CPFEmployee         float64       `json:"cpfEmployee"`
	SDL                 float64       `json:"sdl"`
	Status              PayrollStatus `json:"status,omitempty"`
	PayslipURL          string        `json:"payslipUrl,omitempty"`
	IRASCompliantPDFURL string        `json:"irasCompliantPdfUrl,omitempty"`
}

func (p Payroll) Validate() error {
	if err := requireEntity("payroll", p.ID); err != nil {
		return err
	}
	return checkStatus("payroll", p.Status, payrollStatuses...)
}

type PayrollInput struct {
	EmployeeID  ID            `json:"employeeId,omitempty"`
	Period      string        `json:"period,omitempty"`
	PayCycle    string        `json:"payCycle,omitempty"`
	BasicPay    float64       `json:"basicPay,omitempty"`
	VariablePay float64       `json:"variablePay,omitempty"`
	Allowances  float64       `json:"allowances,omitempty"`
	Bonuses     float64       `json:"bonuses,omitempty"`
	Deductions  float64       `json:"deductions,omitempty"`
	Status      PayrollStatus `json:"status,omitempty"`
}

func (in PayrollInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("employeeId", in.EmployeeID)
	errs.required("period", in.Period)
	errs.nonNegative("basicPay", in.BasicPay)
	errs.nonNegative("variablePay", in.VariablePay)
	errs.nonNegative("allowances", in.Allowances)
	errs.nonNegative("bonuses", in.Bonuses)
	errs.nonNegative("deductions", in.Deductions)
	errs.oneOf("status", string(in.Status), statusStrings(payrollStatuses)...)
	return errs.err()
}

// Contributions is the statutory breakdown the backend computes for a
// payroll run. The SDK only displays it.
type Contributions struct {
	CPFEmployer float64 `json:"cpfEmployer"`
	CPFEmployee float64 `json:"cpfEmployee"`
	SDL         float64 `json:"sdl"`
	GrossPay    float64 `json:"grossPay,omitempty"`
	NetPay      float64 `json:"netPay,omitempty"`
}

type Payrolls struct {
	*Resource[Payroll, PayrollInput]
}

// CPFSDL fetches the backend's CPF and SDL computation for a payroll.
func (r Payrolls) CPFSDL(ctx context.Context, id ID) (Contributions, error) {
	var out Contributions
	err := r.subresource(ctx, http.MethodGet, id, "cpf-sdl-calc", nil, nil, &out)
	return out, err
}
