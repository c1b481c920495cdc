package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expenseflow/internal"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	"github.com/frahmantamala/expenseflow/internal/core/events"
)

type RepositoryAPI interface {
	MembershipReader
	GetByID(ctx context.Context, orgID, id string) (*membershipDatamodel.OrganizationMembership, error)
	GetMember(ctx context.Context, orgID, id string) (*membershipDatamodel.MemberRow, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*membershipDatamodel.MemberRow, error)
	UpdateRole(ctx context.Context, orgID, id string, role Role) error
}

type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func requireAdmin(res Resolution) *internal.AppError {
	return Deny(res, AdminRoles...)
}

// ListMembers returns every membership of the caller's organization.
func (s *Service) ListMembers(ctx context.Context, res Resolution) (*MembersView, error) {
	if err := requireAdmin(res); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByOrganization(ctx, res.OrganizationID())
	if err != nil {
		return nil, internal.NewInternalError("Failed to load members", err)
	}

	members := make([]*Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, MemberFromRow(row))
	}

	return &MembersView{
		Members:         members,
		AssignableRoles: AssignableRoles,
	}, nil
}

// AssignRole changes the role of one membership in the caller's
// organization. Admin memberships are fixed and admin is never handed out.
func (s *Service) AssignRole(ctx context.Context, res Resolution, membershipID string, dto AssignRoleDTO) (*Member, error) {
	if err := requireAdmin(res); err != nil {
		return nil, err
	}

	dto.Normalize()
	if r := Role(dto.Role); r.Valid() && !r.Assignable() {
		return nil, internal.ErrRoleNotAssignable
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role := Role(dto.Role)
	orgID := res.OrganizationID()

	current, err := s.repo.GetByID(ctx, orgID, membershipID)
	if err != nil {
		if errors.Is(err, internal.ErrMembershipNotFound) {
			return nil, internal.ErrMembershipNotFound
		}
		return nil, internal.NewInternalError("Failed to load membership", err)
	}
	previous := current.Role
	if Role(previous) == RoleAdmin {
		return nil, internal.ErrRoleNotAssignable
	}

	if Role(previous) != role {
		if err := s.repo.UpdateRole(ctx, orgID, membershipID, role); err != nil {
			if errors.Is(err, internal.ErrMembershipNotFound) {
				return nil, internal.ErrMembershipNotFound
			}
			return nil, internal.NewInternalError("Failed to update role", err)
		}

		s.logger.Info("role assigned",
			"membership_id", membershipID,
			"organization_id", orgID,
			"previous_role", previous,
			"role", role,
			"changed_by", res.UserID)

		event := events.NewMembershipRoleChangedEvent(membershipID, orgID, current.UserID, previous, string(role), res.UserID)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish role change", "membership_id", membershipID, "error", err)
		}
	}

	row, err := s.repo.GetMember(ctx, orgID, membershipID)
	if err != nil {
		return nil, internal.NewInternalError("Failed to load member", err)
	}
	return MemberFromRow(row), nil
}
