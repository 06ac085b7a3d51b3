// Package opssdk is the client for the business operations backend: HR,
// payroll, timesheets, invoicing, quotes, procurement, leave, tools and
// appendices.
//
// An SDKClient holds the transport. Sessions created from it carry the
// authentication state machine and persist their tokens through a
// tokenstore.Store:
//
//	client := opssdk.NewSDKClient("https://ops.example.com")
//	session := client.NewSession(tokenstore.New(kv))
//	state, err := session.Login(ctx, "jane@x.com", "hunter22")
//	if _, ok := state.(opssdk.AwaitingSecondFactor); ok {
//		state, err = session.VerifySecondFactor(ctx, code)
//	}
//	invoices, err := session.API().Invoices.List(ctx, opssdk.ListFilter{Status: "PAID"})
//
// Every call goes to the backend; nothing is cached. A 401 from any call
// ends the session.
package opssdk
