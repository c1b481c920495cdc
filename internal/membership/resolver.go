package membership

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expenseflow/internal"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/expenseflow/internal/organization"
)

type State string

const (
	StateNoMembership State = "no_membership"
	StateUnassigned   State = "unassigned"
	StateActive       State = "active"
)

// Resolution is the outcome of resolving an identity against its membership.
// Membership and Organization are nil only for StateNoMembership.
type Resolution struct {
	UserID       string
	State        State
	Role         Role
	Membership   *Membership
	Organization *organization.Organization
}

// Route is the client screen this resolution belongs on.
func (r Resolution) Route() string {
	switch r.State {
	case StateNoMembership:
		return RouteOnboarding
	case StateUnassigned:
		return RoutePending
	default:
		return RouteDashboard
	}
}

func (r Resolution) Active() bool {
	return r.State == StateActive
}

func (r Resolution) OrganizationID() string {
	if r.Organization == nil {
		return ""
	}
	return r.Organization.ID
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State        State                      `json:"state"`
		Role         Role                       `json:"role,omitempty"`
		Route        string                     `json:"route"`
		Membership   *Membership                `json:"membership,omitempty"`
		Organization *organization.Organization `json:"organization,omitempty"`
	}{
		State:        r.State,
		Role:         r.Role,
		Route:        r.Route(),
		Membership:   r.Membership,
		Organization: r.Organization,
	})
}

type MembershipReader interface {
	// FindByUserID returns every membership row of the identity.
	FindByUserID(ctx context.Context, userID string) ([]*membershipDatamodel.OrganizationMembership, error)
}

type OrganizationReader interface {
	GetByID(ctx context.Context, id string) (*orgDatamodel.Organization, error)
}

// ResolverAPI is the single authorization entry point every screen and guard depends on.
type ResolverAPI interface {
	Resolve(ctx context.Context, userID string) (Resolution, error)
}

type Resolver struct {
	memberships   MembershipReader
	organizations OrganizationReader
	logger        *slog.Logger
}

func NewResolver(memberships MembershipReader, organizations OrganizationReader, logger *slog.Logger) *Resolver {
	return &Resolver{
		memberships:   memberships,
		organizations: organizations,
		logger:        logger,
	}
}

// Resolve classifies userID. Zero rows and the unassigned role are states,
// not errors. Store failures become ErrOrganizationLoad with a dashboard
// redirect and are not retried.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Resolution, error) {
	rows, err := r.memberships.FindByUserID(ctx, userID)
	if err != nil {
		r.logger.Error("membership lookup failed", "user_id", userID, "error", err)
		return Resolution{}, internal.ErrOrganizationLoad.WithCause(err).WithRedirect(RouteDashboard)
	}

	switch len(rows) {
	case 0:
		return Resolution{UserID: userID, State: StateNoMembership}, nil
	case 1:
	default:
		r.logger.Error("identity has more than one membership", "user_id", userID, "count", len(rows))
		return Resolution{}, internal.ErrMultipleMemberships.WithRedirect(RouteDashboard)
	}

	m := FromDataModel(rows[0])
	org, err := r.organizations.GetByID(ctx, m.OrganizationID)
	if err != nil {
		if !errors.Is(err, internal.ErrOrganizationNotFound) {
			r.logger.Error("organization lookup failed", "organization_id", m.OrganizationID, "error", err)
		}
		return Resolution{}, internal.ErrOrganizationLoad.WithCause(err).WithRedirect(RouteDashboard)
	}

	res := Resolution{
		UserID:       userID,
		State:        StateActive,
		Role:         m.Role,
		Membership:   m,
		Organization: organization.FromDataModel(org),
	}
	if m.Role == RoleUnassigned {
		res.State = StateUnassigned
	}
	return res, nil
}
