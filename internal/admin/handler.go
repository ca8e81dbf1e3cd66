package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/daniry/backoffice/internal/httpx"
	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/observability"
	"github.com/daniry/backoffice/internal/session"
	"github.com/daniry/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for admin authentication and the
// credential-recovery flows.
type Handler struct {
	logger     *slog.Logger
	identities *identity.Service
	service    *Service
	sessions   *session.Manager
	metrics    *observability.Metrics
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, identities *identity.Service, service *Service, sessions *session.Manager, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:     logger,
		identities: identities,
		service:    service,
		sessions:   sessions,
		metrics:    metrics,
		validator:  validator.New(),
	}
}

// MountPublicRoutes registers the routes that run without a session.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Get("/verify-reset-token/{token}", h.handleVerifyResetToken)
	r.Post("/reset-password", h.handleResetPassword)
}

// MountProtectedRoutes registers the routes behind the authenticator.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Post("/security/send-otp", h.handleSendOTP)
	r.Put("/security/update-password", h.handleUpdatePasswordWithOTP)
	r.Put("/profile/update", h.handleUpdateProfile)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.identities.RegisterAdmin(r.Context(), req.Name, req.Email, req.Password); err != nil {
		if errors.Is(err, identity.ErrRegistrationLocked) {
			httpx.Fail(w, http.StatusForbidden, "Registration is locked. An admin account already exists.")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Admin registered successfully", nil)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	ident, err := h.identities.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.LoginFailure()
		httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tok, err := h.sessions.Issue(ident.ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.sessions.SetCookie(w, tok)
	httpx.OK(w, http.StatusOK, "Login successful", map[string]any{
		"admin":        identitySummary(ident),
		"isSuperAdmin": ident.SuperAdmin,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	httpx.OK(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"admin":         identitySummary(ident),
		"isSuperAdmin":  ident.SuperAdmin,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// genericResetMessage never reveals whether the account exists.
const genericResetMessage = "If an account with that email exists, a password reset link has been sent."

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, genericResetMessage, nil)
}

func (h *Handler) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	if tok == "" {
		httpx.Fail(w, http.StatusBadRequest, "Token is required")
		return
	}

	email, err := h.service.VerifyResetToken(r.Context(), tok)
	if err != nil {
		if errors.Is(err, shared.ErrTokenInvalid) {
			httpx.FailData(w, http.StatusBadRequest, "Invalid or expired reset token", map[string]any{"valid": false})
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"valid": true, "email": email})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, shared.ErrTokenInvalid) {
			httpx.Fail(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Password has been reset successfully", nil)
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.service.SendSecurityOTP(r.Context(), ident); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "A verification code has been sent to your email", nil)
}

type updatePasswordRequest struct {
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (h *Handler) handleUpdatePasswordWithOTP(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req updatePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.service.UpdatePasswordWithOTP(r.Context(), ident, req.OTP, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, identity.ErrWeakPassword):
			httpx.Fail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, shared.ErrTokenInvalid):
			httpx.Fail(w, http.StatusBadRequest, "Invalid or expired verification code")
		default:
			httpx.RespondError(w, h.logger, err)
		}
		return
	}
	httpx.OK(w, http.StatusOK, "Password updated successfully", nil)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg, ok := h.validate(req); !ok {
		httpx.Fail(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.identities.UpdateProfile(r.Context(), ident.ID, ident.SuperAdmin, req.Name, req.Email); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.Fail(w, http.StatusConflict, "Email is already in use")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Profile updated successfully", nil)
}

func (h *Handler) validate(req any) (string, bool) {
	if err := h.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), tagMessage(fe.Tag())), false
		}
		return "Invalid request", false
	}
	return "", true
}

func tagMessage(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "not a valid email address"
	case "min":
		return "too short"
	case "len", "numeric":
		return "not valid"
	default:
		return "invalid"
	}
}

func identitySummary(ident *shared.Identity) map[string]any {
	return map[string]any{
		"id":    ident.ID,
		"name":  ident.Name,
		"email": ident.Email,
	}
}
