package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expenseflow/internal"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"gorm.io/gorm"
)

const memberColumns = "organization_memberships.id, organization_memberships.user_id, " +
	"organization_memberships.organization_id, organization_memberships.role, " +
	"COALESCE(profiles.full_name, '') AS full_name, COALESCE(profiles.email, '') AS email, " +
	"organization_memberships.created_at, organization_memberships.updated_at"

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) membership.RepositoryAPI {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) FindByUserID(ctx context.Context, userID string) ([]*membershipDatamodel.OrganizationMembership, error) {
	var rows []*membershipDatamodel.OrganizationMembership
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(2).Find(&rows).Error
	return rows, err
}

func (r *MembershipRepository) GetByID(ctx context.Context, orgID, id string) (*membershipDatamodel.OrganizationMembership, error) {
	var m membershipDatamodel.OrganizationMembership
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) members(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("organization_memberships").
		Select(memberColumns).
		Joins("LEFT JOIN profiles ON profiles.id = organization_memberships.user_id")
}

func (r *MembershipRepository) GetMember(ctx context.Context, orgID, id string) (*membershipDatamodel.MemberRow, error) {
	var rows []*membershipDatamodel.MemberRow
	err := r.members(ctx).
		Where("organization_memberships.id = ? AND organization_memberships.organization_id = ?", id, orgID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, internal.ErrMembershipNotFound
	}
	return rows[0], nil
}

func (r *MembershipRepository) ListByOrganization(ctx context.Context, orgID string) ([]*membershipDatamodel.MemberRow, error) {
	var rows []*membershipDatamodel.MemberRow
	err := r.members(ctx).
		Where("organization_memberships.organization_id = ?", orgID).
		Order("organization_memberships.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

// UpdateRole is keyed by membership id and organization. Last write wins.
func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID, id string, role membership.Role) error {
	res := r.db.WithContext(ctx).
		Model(&membershipDatamodel.OrganizationMembership{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("role", string(role))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrMembershipNotFound
	}
	return nil
}
