package opsdev_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
)

// TestPlanUpgradeUnlocksModules checks the backend gate agrees with the
// client-side plan table before and after an upgrade.
func TestPlanUpgradeUnlocksModules(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	ctx := t.Context()
	sess := registerTenant(t, opssdk.NewSDKClient(baseURL), adminEmail)
	api := sess.API()

	require.False(t, sess.HasAccess(featuregate.Payroll))
	_, err := api.Payrolls.List(ctx, opssdk.ListFilter{})
	require.ErrorIs(t, err, opssdk.ErrForbidden)

	plan := featuregate.Professional
	_, err = sess.UpdateCompanySettings(ctx, opssdk.CompanyPatch{Plan: &plan})
	require.NoError(t, err)
	require.True(t, sess.HasAccess(featuregate.Payroll))

	page, err := api.Payrolls.List(ctx, opssdk.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

// TestInvoiceLifecycle drives an invoice from draft to paid and exports it.
func TestInvoiceLifecycle(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	ctx := t.Context()
	api := registerTenant(t, opssdk.NewSDKClient(baseURL), adminEmail).API()

	customer, err := api.Customers.Create(ctx, opssdk.CustomerInput{Name: "Globex"})
	require.NoError(t, err)

	inv, err := api.Invoices.Create(ctx, opssdk.InvoiceInput{
		ClientID:  customer.ID,
		IssueDate: "2026-10-01",
		DueDate:   "2026-10-31",
		Subtotal:  250,
		Items:     []opssdk.InvoiceItem{{Description: "Welding", Quantity: 5, UnitPrice: 50, Amount: 250}},
	})
	require.NoError(t, err)
	require.Equal(t, opssdk.InvoiceDraft, inv.Status)

	_, err = api.Invoices.UpdateStatus(ctx, inv.ID, opssdk.InvoicePaid)
	require.NoError(t, err)

	history, err := api.Invoices.StatusHistory(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	art, err := api.Invoices.Export(ctx, inv.ID, opssdk.FormatExcel)
	require.NoError(t, err)
	require.Equal(t, "invoice-"+inv.ID.String()+".xlsx", art.Filename)
	require.NotEmpty(t, art.Data)

	_, err = api.Invoices.Export(ctx, inv.ID, opssdk.FormatPDF)
	require.Error(t, err)
}

// TestTenantsAreIsolated checks one company cannot read another's records.
func TestTenantsAreIsolated(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	ctx := t.Context()
	client := opssdk.NewSDKClient(baseURL)
	first := registerTenant(t, client, adminEmail).API()
	second := registerTenant(t, client, "rival@globex.test").API()

	customer, err := first.Customers.Create(ctx, opssdk.CustomerInput{Name: "Initech"})
	require.NoError(t, err)

	_, err = second.Customers.Get(ctx, customer.ID)
	require.ErrorIs(t, err, opssdk.ErrNotFound)

	page, err := second.Customers.List(ctx, opssdk.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}
