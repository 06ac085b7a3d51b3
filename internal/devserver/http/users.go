package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

type UserHandler struct {
	UserService *service.UserService
}

func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := actorFrom(ctx)

	u, err := h.UserService.GetUser(ctx, actor, actor.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(u))
}

func (h *UserHandler) HandleEnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	h.setTwoFactor(w, r, true)
}

func (h *UserHandler) HandleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	h.setTwoFactor(w, r, false)
}

func (h *UserHandler) setTwoFactor(w http.ResponseWriter, r *http.Request, enabled bool) {
	ctx := r.Context()

	u, err := h.UserService.SetTwoFactor(ctx, actorFrom(ctx), enabled)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(u))
}

func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req opssdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	actor := actorFrom(ctx)
	if err := h.UserService.ChangePassword(ctx, actor, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.Info("password changed", "user_id", actor.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.UserService.ListCompanyUsers(ctx, actorFrom(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, usersView(users))
}

func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in opssdk.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadJSON(w)
		return
	}

	u, err := h.UserService.CreateUser(ctx, actorFrom(ctx), service.NewUser{
		Username:   in.Username,
		Email:      in.Email,
		Name:       in.Name,
		Password:   in.Password,
		Role:       in.Role,
		Department: in.Department,
		Position:   in.Position,
		Phone:      in.Phone,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, userView(u))
}

func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.UserService.GetUser(ctx, actorFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(u))
}

// userPatch accepts both profile edits and the admin-only role field.
type userPatch struct {
	opssdk.ProfilePatch
	Role *string `json:"role,omitempty"`
}

func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p userPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadJSON(w)
		return
	}

	u, err := h.UserService.UpdateProfile(ctx, actorFrom(ctx), r.PathValue("id"), service.ProfileUpdate{
		Name:       p.Name,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Phone:      p.Phone,
		Department: p.Department,
		Position:   p.Position,
		JobTitle:   p.JobTitle,
		Bio:        p.Bio,
		Role:       p.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(u))
}

func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.UserService.DeleteUser(ctx, actorFrom(ctx), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
