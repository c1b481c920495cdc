package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expenseflow/internal"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/expenseflow/internal/membership"
	membershipPostgres "github.com/frahmantamala/expenseflow/internal/membership/postgres"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	orgPostgres "github.com/frahmantamala/expenseflow/internal/organization/postgres"
	"gorm.io/gorm"
)

type Store struct {
	db            *gorm.DB
	organizations *orgPostgres.OrganizationRepository
	memberships   membership.RepositoryAPI
}

func NewStore(db *gorm.DB) onboarding.Store {
	return newStore(db)
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		organizations: orgPostgres.NewOrganizationRepository(db),
		memberships:   membershipPostgres.NewMembershipRepository(db),
	}
}

func (s *Store) FindOrganizationBySlug(ctx context.Context, slug string) (*orgDatamodel.Organization, error) {
	return s.organizations.GetBySlug(ctx, slug)
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*orgDatamodel.Organization, error) {
	return s.organizations.GetByID(ctx, id)
}

func (s *Store) FindMembershipsByUserID(ctx context.Context, userID string) ([]*membershipDatamodel.OrganizationMembership, error) {
	return s.memberships.FindByUserID(ctx, userID)
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	return s.organizations.SlugExists(ctx, slug)
}

func (s *Store) CreateOrganization(ctx context.Context, org *orgDatamodel.Organization) error {
	return s.organizations.Create(ctx, org)
}

func (s *Store) CreateMembership(ctx context.Context, m *membershipDatamodel.OrganizationMembership) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrMembershipExists
	}
	return err
}

func (s *Store) CreateCategories(ctx context.Context, categories []*categoryDatamodel.ExpenseCategory) error {
	if len(categories) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&categories).Error
}

func (s *Store) RunInTx(ctx context.Context, fn func(onboarding.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx))
	})
}
