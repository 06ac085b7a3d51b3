package opssdk

// Employee is an HR record. It is distinct from the login User.
type Employee struct {
	ID                ID      `json:"id"`
	CompanyID         ID      `json:"companyId,omitempty"`
	Name              string  `json:"name"`
	Email             string  `json:"email,omitempty"`
	Position          string  `json:"position,omitempty"`
	Department        string  `json:"department,omitempty"`
	Benefits          string  `json:"benefits,omitempty"`
	BankAccount       string  `json:"bankAccount,omitempty"`
	CPFOptIn          bool    `json:"cpfOptIn,omitempty"`
	SDLOptIn          bool    `json:"sdlOptIn,omitempty"`
	EmploymentHistory string  `json:"employmentHistory,omitempty"`
	ContractStart     string  `json:"contractStart,omitempty"`
	ContractEnd       string  `json:"contractEnd,omitempty"`
	NextOfKin         string  `json:"nextOfKin,omitempty"`
	SupervisorID      ID      `json:"supervisorId,omitempty"`
	LeaveBalance      float64 `json:"leaveBalance,omitempty"`
}

func (e Employee) Validate() error { return requireEntity("employee", e.ID) }

type EmployeeInput struct {
	Name              string  `json:"name,omitempty"`
	Email             string  `json:"email,omitempty"`
	Position          string  `json:"position,omitempty"`
	Department        string  `json:"department,omitempty"`
	Benefits          string  `json:"benefits,omitempty"`
	BankAccount       string  `json:"bankAccount,omitempty"`
	CPFOptIn          bool    `json:"cpfOptIn,omitempty"`
	SDLOptIn          bool    `json:"sdlOptIn,omitempty"`
	EmploymentHistory string  `json:"employmentHistory,omitempty"`
	ContractStart     string  `json:"contractStart,omitempty"`
	ContractEnd       string  `json:"contractEnd,omitempty"`
	NextOfKin         string  `json:"nextOfKin,omitempty"`
	SupervisorID      ID      `json:"supervisorId,omitempty"`
	LeaveBalance      float64 `json:"leaveBalance,omitempty"`
}

func (in EmployeeInput) Validate() error {
	errs := fieldErrors{}
	errs.required("name", in.Name)
	errs.email("email", in.Email)
	errs.date("contractStart", in.ContractStart)
	errs.date("contractEnd", in.ContractEnd)
	errs.dateOrder("contractStart", in.ContractStart, "contractEnd", in.ContractEnd)
	errs.nonNegative("leaveBalance", in.LeaveBalance)
	return errs.err()
}

// Attendance is one clock-in/clock-out record.
type Attendance struct {
	ID         ID     `json:"id"`
	EmployeeID ID     `json:"employeeId"`
	ProjectID  ID     `json:"projectId,omitempty"`
	Date       string `json:"date"`
	ClockIn    string `json:"clockIn,omitempty"`
	ClockOut   string `json:"clockOut,omitempty"`
	Location   string `json:"location,omitempty"`
	Method     string `json:"method,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

func (a Attendance) Validate() error { return requireEntity("attendance", a.ID) }

type AttendanceInput struct {
	EmployeeID ID     `json:"employeeId,omitempty"`
	ProjectID  ID     `json:"projectId,omitempty"`
	Date       string `json:"date,omitempty"`
	ClockIn    string `json:"clockIn,omitempty"`
	ClockOut   string `json:"clockOut,omitempty"`
	Location   string `json:"location,omitempty"`
	Method     string `json:"method,omitempty"`
	Remarks    string `json:"remarks,omitempty"`
}

func (in AttendanceInput) Validate() error {
	errs := fieldErrors{}
	errs.requiredID("employeeId", in.EmployeeID)
	errs.required("date", in.Date)
	errs.date("date", in.Date)
	return errs.err()
}

type (
	Employees   = Resource[Employee, EmployeeInput]
	Attendances = Resource[Attendance, AttendanceInput]
)
