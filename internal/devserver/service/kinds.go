package service

import (
	"sort"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

// Export formats a collection may offer.
const (
	FormatExcel    = "excel"
	FormatPDF      = "pdf"
	FormatCalendar = "calendar"
)

// Kind describes one resource collection served under /api/{Name}.
type Kind struct {
	Name     string
	Singular string

	// Feature is the plan feature that unlocks the collection; "" means
	// every plan.
	Feature featuregate.Feature

	// Statuses is the closed status set; empty means free text.
	Statuses []string
	Initial  string

	// DateField is filtered by startDate/endDate.
	DateField string

	Required []string
	Dates    []string
	Formats  []string
}

func (k Kind) allowsStatus(status string) bool {
	if len(k.Statuses) == 0 {
		return true
	}
	for _, s := range k.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (k Kind) offers(format string) bool {
	for _, f := range k.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Collection names with behaviour beyond plain CRUD.
const (
	KindEmployees        = "employees"
	KindAttendance       = "attendance"
	KindLeaves           = "leaves"
	KindInvoices         = "invoices"
	KindClients          = "clients"
	KindQuotes           = "quotes"
	KindTimesheets       = "timesheets"
	KindProjects         = "projects"
	KindTasks            = "tasks"
	KindAppendices       = "appendices"
	KindAppendixItems    = "appendix-items"
	KindPayrolls         = "payrolls"
	KindPurchaseOrders   = "purchase-orders"
	KindSuppliers        = "suppliers"
	KindInventoryItems   = "inventory-items"
	KindTools            = "tools"
	KindToolTransactions = "tool-transactions"
	KindNotifications    = "notifications"

	// kindLeaveDocuments holds uploaded leave attachments; it has no
	// collection routes of its own.
	kindLeaveDocuments = "leave-documents"
)

var kinds = map[string]Kind{
	KindEmployees: {
		Name: KindEmployees, Singular: "employee", Feature: featuregate.HR,
		DateField: "contractStart",
		Required:  []string{"name"},
		Dates:     []string{"contractStart", "contractEnd"},
	},
	KindAttendance: {
		Name: KindAttendance, Singular: "attendance", Feature: featuregate.HR,
		DateField: "date",
		Required:  []string{"employeeId", "date"},
		Dates:     []string{"date"},
	},
	KindLeaves: {
		Name: KindLeaves, Singular: "leave", Feature: featuregate.HR,
		Statuses:  []string{"PENDING", "APPROVED", "REJECTED"},
		Initial:   "PENDING",
		DateField: "startDate",
		Required:  []string{"employeeId", "startDate", "endDate", "type"},
		Dates:     []string{"startDate", "endDate", "expiryDate"},
		Formats:   []string{FormatCalendar, FormatExcel},
	},
	KindInvoices: {
		Name: KindInvoices, Singular: "invoice", Feature: featuregate.Invoice,
		Statuses:  []string{"DRAFT", "SENT", "PAID", "OVERDUE", "CANCELLED"},
		Initial:   "DRAFT",
		DateField: "issueDate",
		Required:  []string{"issueDate", "dueDate"},
		Dates:     []string{"issueDate", "dueDate"},
		Formats:   []string{FormatExcel, FormatPDF},
	},
	KindClients: {
		Name: KindClients, Singular: "client", Feature: featuregate.Invoice,
		Required: []string{"name"},
	},
	KindQuotes: {
		Name: KindQuotes, Singular: "quote", Feature: featuregate.Invoice,
		Statuses: []string{"DRAFT", "SENT", "ACCEPTED", "REJECTED", "CONVERTED"},
		Initial:  "DRAFT",
		Required: []string{"client"},
		Dates:    []string{"validUntil"},
		Formats:  []string{FormatExcel},
	},
	KindTimesheets: {
		Name: KindTimesheets, Singular: "timesheet", Feature: featuregate.Timesheet,
		Statuses:  []string{"PENDING", "SUBMITTED", "APPROVED", "REJECTED", "CONVERTED"},
		Initial:   "PENDING",
		DateField: "date",
		Required:  []string{"employeeId"},
		Dates:     []string{"date", "inspDate"},
		Formats:   []string{FormatExcel},
	},
	KindProjects: {
		Name: KindProjects, Singular: "project", Feature: featuregate.Timesheet,
		DateField: "startDate",
		Required:  []string{"name"},
		Dates:     []string{"startDate", "endDate"},
	},
	KindTasks: {
		Name: KindTasks, Singular: "task", Feature: featuregate.Timesheet,
		Required: []string{"name"},
	},
	KindAppendices: {
		Name: KindAppendices, Singular: "appendix", Feature: featuregate.Timesheet,
		Required: []string{"timesheetId"},
		Formats:  []string{FormatExcel},
	},
	KindAppendixItems: {
		Name: KindAppendixItems, Singular: "appendix-item", Feature: featuregate.Timesheet,
		Statuses: []string{"INCOMPLETE", "COMPLETED"},
		Initial:  "INCOMPLETE",
		Required: []string{"appendixId", "description"},
	},
	KindPayrolls: {
		Name: KindPayrolls, Singular: "payroll", Feature: featuregate.Payroll,
		Statuses: []string{"PENDING", "PROCESSED", "PAID"},
		Initial:  "PENDING",
		Required: []string{"employeeId", "period"},
		Formats:  []string{FormatExcel, FormatPDF},
	},
	KindPurchaseOrders: {
		Name: KindPurchaseOrders, Singular: "purchase-order", Feature: featuregate.Procurement,
		Statuses:  []string{"DRAFT", "ORDERED", "RECEIVED", "CANCELLED"},
		Initial:   "DRAFT",
		DateField: "orderDate",
		Dates:     []string{"orderDate", "deliveryDate"},
		Formats:   []string{FormatExcel},
	},
	KindSuppliers: {
		Name: KindSuppliers, Singular: "supplier", Feature: featuregate.Procurement,
		Required: []string{"name"},
	},
	KindInventoryItems: {
		Name: KindInventoryItems, Singular: "inventory-item", Feature: featuregate.Procurement,
		Required: []string{"name"},
	},
	KindTools: {
		Name: KindTools, Singular: "tool", Feature: featuregate.Tools,
		Statuses: []string{"IN", "OUT", "LOST", "MISSING"},
		Initial:  "IN",
		Required: []string{"name"},
		Dates:    []string{"purchaseDate", "maintenanceDate"},
		Formats:  []string{FormatExcel},
	},
	KindToolTransactions: {
		Name: KindToolTransactions, Singular: "tool-transaction", Feature: featuregate.Tools,
		DateField: "date",
	},
	KindNotifications: {
		Name: KindNotifications, Singular: "notification",
		Required: []string{"message"},
	},
	kindLeaveDocuments: {
		Name: kindLeaveDocuments, Singular: "leave-document", Feature: featuregate.HR,
	},
}

// LookupKind returns the collection registered under name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// CollectionNames lists the collections with generic CRUD routes, sorted.
func CollectionNames() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		if name == KindToolTransactions || name == kindLeaveDocuments {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
