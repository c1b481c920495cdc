package membership

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/frahmantamala/expenseflow/pkg/logger"
)

type resolutionKey struct{}

func ContextWithResolution(ctx context.Context, res Resolution) context.Context {
	ctx = internal.ContextWithOrganizationID(ctx, res.OrganizationID())
	return context.WithValue(ctx, resolutionKey{}, res)
}

func ResolutionFromContext(ctx context.Context) (Resolution, bool) {
	res, ok := ctx.Value(resolutionKey{}).(Resolution)
	return res, ok
}

// Guard is the only place routes are gated on membership and role. It must
// run after the identity middleware.
type Guard struct {
	*transport.BaseHandler
	resolver ResolverAPI
}

func NewGuard(baseHandler *transport.BaseHandler, resolver ResolverAPI) *Guard {
	return &Guard{BaseHandler: baseHandler, resolver: resolver}
}

// Deny returns the denial for a resolution that lacks one of roles, or nil.
func Deny(res Resolution, roles ...Role) *internal.AppError {
	switch res.State {
	case StateNoMembership:
		return internal.ErrNoMembership.WithRedirect(RouteOnboarding)
	case StateUnassigned:
		return internal.ErrRoleUnassigned.WithRedirect(RoutePending)
	}
	if len(roles) > 0 && !res.Role.In(roles...) {
		return internal.ErrInsufficientRole.WithRedirect(RouteDashboard)
	}
	return nil
}

// RequireActive admits identities with an assigned role in any organization.
func (g *Guard) RequireActive(next http.Handler) http.Handler {
	return g.RequireRoles()(next)
}

// RequireRoles admits active identities whose role is one of roles. With no
// roles it behaves like RequireActive.
func (g *Guard) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := g.resolve(w, r)
			if !ok {
				return
			}

			if denial := Deny(res, roles...); denial != nil {
				logger.From(r.Context()).Warn("access denied",
					"user_id", res.UserID,
					"state", res.State,
					"role", res.Role,
					"required_roles", roles,
					"path", r.URL.Path)
				g.WriteAppError(w, denial)
				return
			}

			ctx := ContextWithResolution(r.Context(), res)
			ctx = logger.With(ctx, "organization_id", res.OrganizationID(), "role", res.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) resolve(w http.ResponseWriter, r *http.Request) (Resolution, bool) {
	user, ok := identity.UserFromContext(r.Context())
	if !ok {
		g.WriteAppError(w, internal.ErrInvalidToken.WithRedirect(identity.RouteAuth))
		return Resolution{}, false
	}

	if res, ok := ResolutionFromContext(r.Context()); ok && res.UserID == user.ID {
		return res, true
	}

	res, err := g.resolver.Resolve(r.Context(), user.ID)
	if err != nil {
		g.HandleServiceError(w, err)
		return Resolution{}, false
	}
	return res, true
}
