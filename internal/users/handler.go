package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/daniry/backoffice/internal/httpx"
	"github.com/daniry/backoffice/internal/identity"
	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for user management and the invitation
// setup flow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountPublicRoutes registers the invitation endpoints, reachable
// without a session because the invitee has no credential yet.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/verify-invitation/{token}", h.handleVerifyInvitation)
	r.Post("/setup-password", h.handleSetupPassword)
}

// MountProtectedRoutes registers the management endpoints behind the
// authenticator. Any authenticated identity may read its own effective
// permissions; everything else manages accounts and grants, so it is
// reserved for super admins.
func (h *Handler) MountProtectedRoutes(r chi.Router, gate *rbac.Middleware) {
	r.Get("/me/permissions", h.handleMyPermissions)
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireSuperAdmin())
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Post("/invite", h.handleInvite)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type inviteRequest struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	RoleIDs     []int64  `json:"roleIds"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Name and a valid email are required")
		return
	}

	user, err := h.service.Invite(r.Context(), req.Name, req.Email, req.RoleIDs, req.Permissions)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.Fail(w, http.StatusConflict, "A user with that email already exists")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Invitation sent", map[string]any{"user": user})
}

func (h *Handler) handleVerifyInvitation(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	if tok == "" {
		httpx.Fail(w, http.StatusBadRequest, "Token is required")
		return
	}

	inv, err := h.service.VerifyInvitation(r.Context(), tok)
	if err != nil {
		if errors.Is(err, shared.ErrTokenInvalid) {
			httpx.FailData(w, http.StatusBadRequest, "Invalid or expired invitation", map[string]any{"valid": false})
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{
		"valid":                true,
		"name":                 inv.Name,
		"email":                inv.Email,
		"requiresTempPassword": inv.RequiresTempPassword,
	})
}

type setupPasswordRequest struct {
	Token        string `json:"token" validate:"required"`
	Password     string `json:"password" validate:"required"`
	TempPassword string `json:"tempPassword"`
}

func (h *Handler) handleSetupPassword(w http.ResponseWriter, r *http.Request) {
	var req setupPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Token and password are required")
		return
	}

	if err := h.service.SetupPassword(r.Context(), req.Token, req.Password, req.TempPassword); err != nil {
		switch {
		case errors.Is(err, ErrTempPasswordMismatch):
			httpx.Fail(w, http.StatusBadRequest, "Temporary password is incorrect")
		case errors.Is(err, identity.ErrWeakPassword):
			httpx.Fail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, shared.ErrTokenInvalid):
			httpx.Fail(w, http.StatusBadRequest, "Invalid or expired invitation")
		default:
			httpx.RespondError(w, h.logger, err)
		}
		return
	}
	httpx.OK(w, http.StatusOK, "Password set successfully. You can now log in.", nil)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"users": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"user": detail})
}

type updateRequest struct {
	Name        string     `json:"name" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	RoleIDs     []int64    `json:"roleIds"`
	Permissions []Override `json:"permissions"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Name and a valid email are required")
		return
	}

	detail, err := h.service.Update(r.Context(), id, req.Name, req.Email, req.RoleIDs, req.Permissions)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.Fail(w, http.StatusConflict, "A user with that email already exists")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User updated successfully", map[string]any{"user": detail})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User deactivated", nil)
}

func (h *Handler) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	slugs, err := h.service.EffectivePermissions(r.Context(), ident)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{
		"permissions":  slugs,
		"isSuperAdmin": ident.SuperAdmin,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}
