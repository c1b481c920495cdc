package export

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/transport"
)

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ServiceAPI interface {
	Build(ctx context.Context, res membership.Resolution, query Query) (*Report, error)
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

// ExportExpenses handles GET /accounts/export
func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	res, _ := membership.ResolutionFromContext(r.Context())

	report, err := h.Service.Build(r.Context(), res, QueryFromURL(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	f, err := Workbook(report)
	if err != nil {
		h.Logger.Error("failed to render export workbook", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to generate export")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename()))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.Logger.Error("failed to stream export workbook", "error", err)
	}
}
