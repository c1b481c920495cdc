package receipt

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateUploadURL(ctx context.Context, res membership.Resolution, dto UploadURLDTO) (*UploadURL, error)
	DownloadURL(ctx context.Context, res membership.Resolution, expenseID string) (*DownloadURL, error)
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

// CreateUploadURL handles POST /receipts/upload-url
func (h *Handler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	var dto UploadURLDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	upload, err := h.Service.CreateUploadURL(r.Context(), res, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, upload)
}

// GetReceipt handles GET /expenses/{id}/receipt
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	download, err := h.Service.DownloadURL(r.Context(), res, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, download)
}
