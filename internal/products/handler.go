package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/daniry/backoffice/internal/httpx"
	"github.com/daniry/backoffice/internal/rbac"
	"github.com/daniry/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for the product catalog. Each route is
// gated on the matching product permission.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers product endpoints behind the permission gate.
func (h *Handler) MountRoutes(r chi.Router, gate *rbac.Middleware) {
	r.With(gate.RequirePermission(shared.PermProductsView)).Get("/", h.handleList)
	r.With(gate.RequirePermission(shared.PermProductsView)).Get("/{id}", h.handleGet)
	r.With(gate.RequirePermission(shared.PermProductsCreate)).Post("/", h.handleCreate)
	r.With(gate.RequirePermission(shared.PermProductsEdit)).Put("/{id}", h.handleUpdate)
	r.With(gate.RequirePermission(shared.PermProductsDelete)).Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"products": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	product, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", map[string]any{"product": product})
}

type productRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Active      bool    `json:"active"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Product name is required and price must not be negative")
		return
	}

	product := &Product{Name: req.Name, Description: req.Description, Price: req.Price, Active: req.Active}
	id, err := h.repo.Create(r.Context(), product)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.Fail(w, http.StatusConflict, "A product with that name already exists")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	created, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Product created successfully", map[string]any{"product": created})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Product name is required and price must not be negative")
		return
	}

	product := &Product{ID: id, Name: req.Name, Description: req.Description, Price: req.Price, Active: req.Active}
	if err := h.repo.Update(r.Context(), product); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	updated, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product updated successfully", map[string]any{"product": updated})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Product deleted successfully", nil)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}
