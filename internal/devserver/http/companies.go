package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

type CompanyHandler struct {
	CompanyService *service.CompanyService
}

func (h *CompanyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := h.CompanyService.GetCompany(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, companyView(c))
}

func (h *CompanyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p opssdk.CompanyPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadJSON(w)
		return
	}

	c, err := h.CompanyService.UpdateCompany(ctx, actorFrom(ctx), r.PathValue("id"), service.CompanyUpdate{
		Name:          p.Name,
		Plan:          p.Plan,
		Industry:      p.Industry,
		EmployeeCount: p.EmployeeCount,
		Address:       p.Address,
		City:          p.City,
		State:         p.State,
		Country:       p.Country,
		PostalCode:    p.PostalCode,
		Phone:         p.Phone,
		Email:         p.Email,
		Website:       p.Website,
		Logo:          p.Logo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, companyView(c))
}

func (h *CompanyHandler) HandleOnboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req opssdk.OnboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	c, err := h.CompanyService.Onboard(ctx, actorFrom(ctx), service.Onboarding{
		CompanyName:   req.CompanyName,
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
		AdminName:     req.AdminName,
		Plan:          req.Plan,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info("company onboarded", "company_id", c.ID)
	httpx.WriteJSON(w, http.StatusCreated, companyView(c))
}
