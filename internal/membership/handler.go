package membership

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/profile"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListMembers(ctx context.Context, res Resolution) (*MembersView, error)
	AssignRole(ctx context.Context, res Resolution, membershipID string, dto AssignRoleDTO) (*Member, error)
}

type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Resolver ResolverAPI
	Profiles ProfileReader
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, resolver ResolverAPI, profiles ProfileReader) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Resolver:    resolver,
		Profiles:    profiles,
	}
}

// SessionView is everything a client needs to decide which screen to show.
type SessionView struct {
	User       *identity.User   `json:"user"`
	Profile    *profile.Profile `json:"profile,omitempty"`
	Resolution Resolution       `json:"resolution"`
	Route      string           `json:"route"`
}

// Session handles GET /session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken.WithRedirect(identity.RouteAuth))
		return
	}

	res, ok := ResolutionFromContext(r.Context())
	if !ok {
		var err error
		res, err = h.Resolver.Resolve(r.Context(), user.ID)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	p, err := h.Profiles.GetProfile(r.Context(), user.ID)
	if err != nil && !errors.Is(err, internal.ErrProfileNotFound) {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SessionView{
		User:       user,
		Profile:    p,
		Resolution: res,
		Route:      res.Route(),
	})
}

// ListMembers handles GET /admin/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	res, _ := ResolutionFromContext(r.Context())

	view, err := h.Service.ListMembers(r.Context(), res)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

// AssignRole handles PATCH /admin/members/{id}/role
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	res, _ := ResolutionFromContext(r.Context())

	var dto AssignRoleDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	member, err := h.Service.AssignRole(r.Context(), res, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, member)
}
