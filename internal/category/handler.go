package category

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListActive(ctx context.Context, orgID string) ([]*Category, error)
	ListAll(ctx context.Context, orgID string) ([]*Category, error)
	Create(ctx context.Context, orgID string, dto CreateCategoryDTO) (*Category, error)
	SetActive(ctx context.Context, orgID, id string, dto SetActiveDTO) (*Category, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetCategories handles GET /categories
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListActive(r.Context(), internal.OrganizationIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// GetAllCategories handles GET /admin/categories
func (h *Handler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListAll(r.Context(), internal.OrganizationIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// CreateCategory handles POST /admin/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto CreateCategoryDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	c, err := h.Service.Create(r.Context(), internal.OrganizationIDFromContext(r.Context()), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

// SetActive handles PATCH /admin/categories/{id}/active
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var dto SetActiveDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	c, err := h.Service.SetActive(r.Context(), internal.OrganizationIDFromContext(r.Context()), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, c)
}
