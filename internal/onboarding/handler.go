package onboarding

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/transport"
)

type ServiceAPI interface {
	Onboard(ctx context.Context, userID string, dto OnboardDTO) (*Result, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// Onboard handles POST /onboarding
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken.WithRedirect(identity.RouteAuth))
		return
	}

	var dto OnboardDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	result, err := h.Service.Onboard(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, result)
}
