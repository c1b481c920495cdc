package identity

import (
	"net/http"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/frahmantamala/expenseflow/pkg/logger"
)

// RouteAuth is where clients send an identity that has no valid session.
const RouteAuth = "/auth"

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

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var dto SignUpDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.SignUp(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, tokens)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var dto SignInDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.SignIn(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var dto MagicLinkDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.RequestMagicLink(r.Context(), dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the address can receive mail, a sign-in link is on its way",
	})
}

func (h *Handler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var dto VerifyMagicLinkDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.RedeemMagicLink(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto, false); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.Refresh(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrInvalidToken.WithRedirect(RouteAuth))
		return
	}

	var dto SignOutDTO
	if err := h.DecodeJSON(r, &dto, true); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.SignOut(r.Context(), user, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware rejects requests without a valid, unrevoked access token and
// stores the identity in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken).WithRedirect(RouteAuth))
			return
		}

		user, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeUnauthorized {
				h.Logger.Debug("access token rejected", "code", appErr.Code)
				h.WriteAppError(w, appErr.WithRedirect(RouteAuth))
				return
			}
			h.HandleServiceError(w, err)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
