package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bizops/internal/devserver/domain"
	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/internal/devserver/store"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/jwtx"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// LegacyChallenge answers challenged logins with a 200 message instead
	// of a 409, the way older backends did.
	LegacyChallenge bool

	AuthLimit httpx.RateLimitConfig
	APILimit  httpx.RateLimitConfig

	store          store.Store
	AuthService    *service.AuthService
	TokenService   *service.TokenService
	UserService    *service.UserService
	CompanyService *service.CompanyService
	RecordService  *service.RecordService
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		AuthLimit:    httpx.AuthLimit,
		APILimit:     httpx.APILimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerCompanies()
	r.registerCollections()
	r.registerActions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed wraps h with bearer authentication and the per-user API limit.
func (r *Router) authed(h http.HandlerFunc, extra ...httpx.Middleware) http.Handler {
	mws := append([]httpx.Middleware{
		httpx.Authenticate(r.verifier),
		httpx.RateLimitByUser(r.APILimit),
	}, extra...)
	return httpx.Chain(h, mws...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:     r.AuthService,
		TokenService:    r.TokenService,
		LegacyChallenge: r.LegacyChallenge,
	}

	// Limited by IP; verify-2fa also by the username it targets
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin), httpx.RateLimitByIP(r.AuthLimit)))
	r.Mux.Handle("POST /api/auth/verify-2fa",
		httpx.Chain(http.HandlerFunc(h.HandleVerify), httpx.RateLimitByIPAndQuery(r.AuthLimit, "username")))
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister), httpx.RateLimitByIP(r.AuthLimit)))
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh), httpx.RateLimitByIP(r.AuthLimit)))
}

func (r *Router) registerUsers() {
	h := &UserHandler{UserService: r.UserService}

	r.Mux.Handle("GET /api/users/me", r.authed(h.HandleMe))
	r.Mux.Handle("POST /api/users/me/enable-2fa", r.authed(h.HandleEnableTwoFactor))
	r.Mux.Handle("POST /api/users/me/disable-2fa", r.authed(h.HandleDisableTwoFactor))
	r.Mux.Handle("POST /api/users/change-password", r.authed(h.HandleChangePassword))
	r.Mux.Handle("GET /api/users/company", r.authed(h.HandleList))

	r.Mux.Handle("GET /api/users", r.authed(h.HandleList))
	r.Mux.Handle("POST /api/users", r.authed(h.HandleCreate, httpx.RequireRole("admin")))
	r.Mux.Handle("GET /api/users/{id}", r.authed(h.HandleGet))
	r.Mux.Handle("PUT /api/users/{id}", r.authed(h.HandleUpdate))
	r.Mux.Handle("DELETE /api/users/{id}", r.authed(h.HandleDelete, httpx.RequireRole("admin")))
}

func (r *Router) registerCompanies() {
	h := &CompanyHandler{CompanyService: r.CompanyService}

	r.Mux.Handle("GET /api/companies/{id}", r.authed(h.HandleGet))
	r.Mux.Handle("PUT /api/companies/{id}", r.authed(h.HandleUpdate, httpx.RequireRole("admin")))
	r.Mux.Handle("POST /api/company/onboard", r.authed(h.HandleOnboard, httpx.RequireRole("admin")))
}

func (r *Router) registerCollections() {
	for _, name := range service.CollectionNames() {
		k, _ := service.LookupKind(name)
		h := &RecordHandler{RecordService: r.RecordService, Kind: k}
		base := "/api/" + name

		r.Mux.Handle("GET "+base, r.authed(h.HandleList))
		r.Mux.Handle("POST "+base, r.authed(h.HandleCreate))
		r.Mux.Handle("GET "+base+"/{id}", r.authed(h.HandleGet))
		r.Mux.Handle("PUT "+base+"/{id}", r.authed(h.HandleUpdate))
		r.Mux.Handle("DELETE "+base+"/{id}", r.authed(h.HandleDelete))

		if len(k.Formats) > 0 {
			r.Mux.Handle("GET "+base+"/{id}/{format}", r.authed(h.HandleExport))
		}
	}
}

func (r *Router) registerActions() {
	h := &ActionHandler{RecordService: r.RecordService}

	r.Mux.Handle("PUT /api/invoices/{id}/status", r.authed(h.HandleInvoiceStatus))
	r.Mux.Handle("POST /api/invoices/{id}/send", r.authed(h.HandleInvoiceSend))
	r.Mux.Handle("GET /api/invoices/{id}/audit-trail", r.authed(h.HandleHistory(service.KindInvoices, domain.HistoryAudit)))
	r.Mux.Handle("GET /api/invoices/{id}/status-history", r.authed(h.HandleHistory(service.KindInvoices, domain.HistoryStatus)))

	r.Mux.Handle("POST /api/quotes/{id}/convert", r.authed(h.HandleQuoteConvert))

	r.Mux.Handle("POST /api/timesheets/{id}/approve", r.authed(h.HandleDecide(service.KindTimesheets, true)))
	r.Mux.Handle("POST /api/timesheets/{id}/reject", r.authed(h.HandleDecide(service.KindTimesheets, false)))
	r.Mux.Handle("POST /api/timesheets/{id}/convert", r.authed(h.HandleTimesheetConvert))
	r.Mux.Handle("POST /api/timesheets/bulk-convert", r.authed(h.HandleTimesheetBulkConvert))

	r.Mux.Handle("POST /api/leaves/{id}/approve", r.authed(h.HandleDecide(service.KindLeaves, true)))
	r.Mux.Handle("POST /api/leaves/{id}/reject", r.authed(h.HandleDecide(service.KindLeaves, false)))
	r.Mux.Handle("POST /api/leaves/{id}/upload-doc", r.authed(h.HandleLeaveUpload))
	r.Mux.Handle("GET /api/leaves/{id}/document", r.authed(h.HandleLeaveDocument))

	r.Mux.Handle("GET /api/payrolls/{id}/cpf-sdl-calc", r.authed(h.HandleContributions))

	r.Mux.Handle("POST /api/tool-transactions/checkout", r.authed(h.HandleToolMove(true)))
	r.Mux.Handle("POST /api/tool-transactions/checkin", r.authed(h.HandleToolMove(false)))
	r.Mux.Handle("GET /api/tool-transactions", r.authed(h.HandleToolTransactions))
	r.Mux.Handle("GET /api/tool-transactions/tool/{id}", r.authed(h.HandleToolTransactions))

	r.Mux.Handle("GET /api/appendices/timesheet/{id}", r.authed(h.HandleChildren(service.KindAppendices, "timesheetId")))
	r.Mux.Handle("GET /api/appendix-items/appendix/{id}", r.authed(h.HandleChildren(service.KindAppendixItems, "appendixId")))
	r.Mux.Handle("PUT /api/appendix-items/bulk/{id}", r.authed(h.HandleAppendixBulk))

	r.Mux.Handle("POST /api/notifications/{id}/read", r.authed(h.HandleNotificationRead))
	r.Mux.Handle("GET /api/notifications/company/{id}", r.authed(h.HandleCompanyNotifications))
	r.Mux.Handle("GET /api/notifications/user/{id}", r.authed(h.HandleChildren(service.KindNotifications, "userId")))
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer))
}
