package membership

import (
	"time"

	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
)

// Client routes returned alongside resolutions and denials.
const (
	RouteOnboarding = "/onboarding"
	RoutePending    = "/pending"
	RouteDashboard  = "/dashboard"
)

type Membership struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           Role      `json:"role"`
	InvitedBy      *string   `json:"invited_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Member is a membership with the profile fields shown on the members screen.
type Member struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func FromDataModel(m *membershipDatamodel.OrganizationMembership) *Membership {
	return &Membership{
		ID:             m.ID,
		UserID:         m.UserID,
		OrganizationID: m.OrganizationID,
		Role:           Role(m.Role),
		InvitedBy:      m.InvitedBy,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func MemberFromRow(row *membershipDatamodel.MemberRow) *Member {
	return &Member{
		ID:        row.ID,
		UserID:    row.UserID,
		Role:      Role(row.Role),
		FullName:  row.FullName,
		Email:     row.Email,
		JoinedAt:  row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
