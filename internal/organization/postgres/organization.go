package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expenseflow/internal"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*orgDatamodel.Organization, error) {
	var org orgDatamodel.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// GetBySlug returns nil, nil when no organization uses slug.
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*orgDatamodel.Organization, error) {
	var org orgDatamodel.Organization
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&orgDatamodel.Organization{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *OrganizationRepository) Create(ctx context.Context, org *orgDatamodel.Organization) error {
	err := r.db.WithContext(ctx).Create(org).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrSlugTaken
	}
	return err
}
