package opssdk

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

// API groups the typed clients of every business module. All of them share
// the session's token, policy and state.
type API struct {
	Employees      *Employees
	Attendance     *Attendances
	Invoices       Invoices
	Customers      *Customers
	Quotes         Quotes
	Timesheets     Timesheets
	Projects       *Projects
	Tasks          *Tasks
	Payrolls       Payrolls
	PurchaseOrders *PurchaseOrders
	Suppliers      *Suppliers
	InventoryItems *InventoryItems
	Leaves         Leaves
	Tools          Tools
	Appendices     Appendices
	AppendixItems  AppendixItems
	Notifications  Notifications
	Users          Users

	collections map[string]registered
}

// Collection is the untyped view of a Resource used by generic front ends.
type Collection interface {
	Name() string
	Formats() []ExportFormat
	ListAny(ctx context.Context, filter ListFilter) (Page[any], error)
	GetAny(ctx context.Context, id ID) (any, error)
	Remove(ctx context.Context, id ID) error
	Export(ctx context.Context, id ID, format ExportFormat) (Artifact, error)
}

type registered struct {
	collection Collection
	feature    featuregate.Feature
}

// API returns the module clients bound to this session.
func (s *Session) API() *API {
	a := &API{
		Employees:      NewResource[Employee, EmployeeInput](s, "employees", "employee"),
		Attendance:     NewResource[Attendance, AttendanceInput](s, "attendance", "attendance"),
		Invoices:       Invoices{NewResource[Invoice, InvoiceInput](s, "invoices", "invoice", FormatExcel, FormatPDF)},
		Customers:      NewResource[Customer, CustomerInput](s, "clients", "client"),
		Quotes:         Quotes{NewResource[Quote, QuoteInput](s, "quotes", "quote", FormatExcel)},
		Timesheets:     Timesheets{NewResource[Timesheet, TimesheetInput](s, "timesheets", "timesheet", FormatExcel)},
		Projects:       NewResource[Project, ProjectInput](s, "projects", "project"),
		Tasks:          NewResource[Task, TaskInput](s, "tasks", "task"),
		Payrolls:       Payrolls{NewResource[Payroll, PayrollInput](s, "payrolls", "payroll", FormatExcel, FormatPDF)},
		PurchaseOrders: NewResource[PurchaseOrder, PurchaseOrderInput](s, "purchase-orders", "purchase-order", FormatExcel),
		Suppliers:      NewResource[Supplier, SupplierInput](s, "suppliers", "supplier"),
		InventoryItems: NewResource[InventoryItem, InventoryItemInput](s, "inventory-items", "inventory-item"),
		Leaves:         Leaves{NewResource[LeaveRequest, LeaveRequestInput](s, "leaves", "leave", FormatCalendar, FormatExcel)},
		Tools:          Tools{NewResource[Tool, ToolInput](s, "tools", "tool", FormatExcel)},
		Appendices:     Appendices{NewResource[Appendix, AppendixInput](s, "appendices", "appendix", FormatExcel)},
		AppendixItems:  AppendixItems{NewResource[AppendixItem, AppendixItemInput](s, "appendix-items", "appendix-item")},
		Notifications:  Notifications{NewResource[Notification, NotificationInput](s, "notifications", "notification")},
		Users:          Users{NewResource[User, UserInput](s, "users", "user")},
	}

	a.collections = map[string]registered{}
	register := func(c Collection, f featuregate.Feature) {
		a.collections[c.Name()] = registered{collection: c, feature: f}
	}
	register(a.Employees, featuregate.HR)
	register(a.Attendance, featuregate.HR)
	register(a.Leaves, featuregate.HR)
	register(a.Invoices, featuregate.Invoice)
	register(a.Customers, featuregate.Invoice)
	register(a.Quotes, featuregate.Invoice)
	register(a.Timesheets, featuregate.Timesheet)
	register(a.Projects, featuregate.Timesheet)
	register(a.Tasks, featuregate.Timesheet)
	register(a.Appendices, featuregate.Timesheet)
	register(a.AppendixItems, featuregate.Timesheet)
	register(a.Payrolls, featuregate.Payroll)
	register(a.PurchaseOrders, featuregate.Procurement)
	register(a.Suppliers, featuregate.Procurement)
	register(a.InventoryItems, featuregate.Procurement)
	register(a.Tools, featuregate.Tools)
	register(a.Notifications, "")
	register(a.Users, "")
	return a
}

// Collection looks a module up by its path name, e.g. "purchase-orders".
func (a *API) Collection(name string) (Collection, bool) {
	r, ok := a.collections[name]
	return r.collection, ok
}

// Feature returns the plan feature guarding a collection. Collections every
// plan can use return "".
func (a *API) Feature(name string) featuregate.Feature {
	return a.collections[name].feature
}

// Collections lists the registered names in order.
func (a *API) Collections() []string {
	names := make([]string, 0, len(a.collections))
	for name := range a.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
