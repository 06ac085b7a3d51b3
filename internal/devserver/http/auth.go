package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bizops/internal/devserver/service"
	"github.com/aussiebroadwan/bizops/pkg/httpx"
	"github.com/aussiebroadwan/bizops/pkg/opssdk"
	"github.com/aussiebroadwan/bizops/pkg/slogx"
)

type AuthHandler struct {
	AuthService  *service.AuthService
	TokenService *service.TokenService

	LegacyChallenge bool
}

// challengeBody is the 409 answer to a login that needs a second factor.
type challengeBody struct {
	Status            int    `json:"status"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	Username          string `json:"username"`
	TwoFactorRequired bool   `json:"twoFactorRequired"`
}

// HandleLogin godoc
//
//	@Summary		Password Login
//	@Description	Authenticates with username or e-mail and password
//	@Description	Accounts with 2FA enabled receive a code by e-mail and must call /api/auth/verify-2fa
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		opssdk.LoginRequest		true	"username, password"
//	@Success		200		{object}	opssdk.AuthResponse		"token, refreshToken, user, company"
//	@Failure		401		{object}	httpx.ErrorBody			"invalid credentials"
//	@Failure		409		{object}	challengeBody			"two_factor_required"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req opssdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	sess, err := h.AuthService.Login(ctx, req.Username, req.Password)
	var challenge *service.ChallengeError
	switch {
	case errors.As(err, &challenge):
		log.Info("login challenged", "username", challenge.Username)
		if h.LegacyChallenge {
			httpx.WriteJSON(w, http.StatusOK, opssdk.AuthResponse{Message: "2FA code sent to your email"})
			return
		}
		httpx.WriteJSON(w, http.StatusConflict, challengeBody{
			Status:            http.StatusConflict,
			Error:             "two_factor_required",
			Message:           "A verification code has been sent to your email",
			Username:          challenge.Username,
			TwoFactorRequired: true,
		})
	case err != nil:
		writeServiceError(w, r, err)
	default:
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, sessionView(sess))
	}
}

// HandleVerify godoc
//
//	@Summary		Second Factor Verification
//	@Description	Completes a challenged login with the e-mailed code
//	@Tags			Auth
//	@Produce		json
//	@Param			username	query		string				true	"username from the challenge"
//	@Param			code		query		string				true	"six digit code"
//	@Success		200			{object}	opssdk.AuthResponse	"token, refreshToken, user, company"
//	@Failure		400			{object}	httpx.ErrorBody		"invalid code"
//	@Router			/api/auth/verify-2fa [post].
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}
	username := r.FormValue("username")
	code := r.FormValue("code")
	if username == "" || code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and code are required")
		return
	}

	sess, err := h.AuthService.VerifySecondFactor(ctx, username, code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionView(sess))
}

// registerRequest is the wire shape of POST /api/auth/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Company  struct {
		Name          string `json:"name"`
		Industry      string `json:"industry"`
		EmployeeCount string `json:"employeeCount"`
		Plan          string `json:"plan"`
	} `json:"company"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	// Role and plan are fixed server side
	sess, err := h.AuthService.Register(ctx, service.Registration{
		Username:      req.Username,
		Email:         req.Email,
		Name:          req.Name,
		Password:      req.Password,
		CompanyName:   req.Company.Name,
		Industry:      req.Company.Industry,
		EmployeeCount: req.Company.EmployeeCount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, sessionView(sess))
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req opssdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refreshToken is required")
		return
	}

	sess, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionView(sess))
}
