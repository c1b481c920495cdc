package category

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expenseflow/internal"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	ListByOrganization(ctx context.Context, orgID string, activeOnly bool) ([]*categoryDatamodel.ExpenseCategory, error)
	GetByID(ctx context.Context, orgID, id string) (*categoryDatamodel.ExpenseCategory, error)
	Create(ctx context.Context, category *categoryDatamodel.ExpenseCategory) error
	SetActive(ctx context.Context, orgID, id string, active bool) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) list(ctx context.Context, orgID string, activeOnly bool) ([]*Category, error) {
	rows, err := s.repo.ListByOrganization(ctx, orgID, activeOnly)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "organization_id", orgID, "error", err)
		return nil, internal.NewInternalError("Failed to load categories", err)
	}

	categories := make([]*Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, FromDataModel(row))
	}
	return categories, nil
}

// ListActive returns the categories members can file expenses under.
func (s *Service) ListActive(ctx context.Context, orgID string) ([]*Category, error) {
	return s.list(ctx, orgID, true)
}

func (s *Service) ListAll(ctx context.Context, orgID string) ([]*Category, error) {
	return s.list(ctx, orgID, false)
}

// GetActive returns ErrCategoryNotFound for categories that are missing,
// inactive or owned by another organization.
func (s *Service) GetActive(ctx context.Context, orgID, id string) (*Category, error) {
	row, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, internal.ErrCategoryNotFound) {
			return nil, internal.ErrCategoryNotFound
		}
		return nil, internal.NewInternalError("Failed to load category", err)
	}

	c := FromDataModel(row)
	if !c.IsActiveCategory() {
		return nil, internal.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, orgID string, dto CreateCategoryDTO) (*Category, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row := ToDataModel(NewCategory(orgID, dto.Name, dto.Description, dto.Color, dto.Icon))
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, internal.ErrDuplicateCategory) {
			return nil, internal.ErrDuplicateCategory
		}
		return nil, internal.NewInternalError("Failed to create category", err)
	}

	s.logger.Info("category created", "organization_id", orgID, "category_id", row.ID, "name", row.Name)
	return FromDataModel(row), nil
}

func (s *Service) SetActive(ctx context.Context, orgID, id string, dto SetActiveDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, internal.ErrCategoryNotFound) {
			return nil, internal.ErrCategoryNotFound
		}
		return nil, internal.NewInternalError("Failed to load category", err)
	}

	c := FromDataModel(row)
	if *dto.IsActive {
		c.Activate()
	} else {
		c.Deactivate()
	}

	if err := s.repo.SetActive(ctx, orgID, id, c.IsActive); err != nil {
		if errors.Is(err, internal.ErrCategoryNotFound) {
			return nil, internal.ErrCategoryNotFound
		}
		return nil, internal.NewInternalError("Failed to update category", err)
	}

	s.logger.Info("category toggled", "organization_id", orgID, "category_id", id, "is_active", c.IsActive)
	return c, nil
}
