package onboarding

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/organization"
)

// Store is the persistence onboarding needs. RunInTx hands fn a Store bound
// to one transaction; fn returning an error rolls everything back.
type Store interface {
	FindOrganizationBySlug(ctx context.Context, slug string) (*orgDatamodel.Organization, error)
	GetOrganization(ctx context.Context, id string) (*orgDatamodel.Organization, error)
	FindMembershipsByUserID(ctx context.Context, userID string) ([]*membershipDatamodel.OrganizationMembership, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateOrganization(ctx context.Context, org *orgDatamodel.Organization) error
	CreateMembership(ctx context.Context, m *membershipDatamodel.OrganizationMembership) error
	CreateCategories(ctx context.Context, categories []*categoryDatamodel.ExpenseCategory) error
	RunInTx(ctx context.Context, fn func(Store) error) error
}

type Service struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	slugs     organization.SlugGenerator
}

func NewService(store Store, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// WithSlugGenerator overrides suffix and clock sources. Exists is always
// bound to the active transaction.
func (s *Service) WithSlugGenerator(g organization.SlugGenerator) *Service {
	s.slugs = g
	return s
}

// Onboard creates or joins the organization named by dto. An identity that
// already has a membership gets it back unchanged and nothing is written.
// Creating an organization, seeding its categories and making the caller
// admin happen in one transaction.
func (s *Service) Onboard(ctx context.Context, userID string, dto OnboardDTO) (*Result, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.existing(ctx, s.store, userID); err != nil || existing != nil {
		return existing, err
	}

	var (
		result  *Result
		orgRow  *orgDatamodel.Organization
		memRow  *membershipDatamodel.OrganizationMembership
		created bool
	)

	err := s.store.RunInTx(ctx, func(tx Store) error {
		if existing, err := s.existing(ctx, tx, userID); err != nil || existing != nil {
			result = existing
			return err
		}

		slug := dto.Slug()
		org, err := tx.FindOrganizationBySlug(ctx, slug)
		if err != nil {
			return internal.NewInternalError("Failed to look up organization", err)
		}

		role := membership.RoleUnassigned
		if org == nil {
			org, err = s.createOrganization(ctx, tx, slug, dto.DisplayName())
			if err != nil {
				return err
			}
			role = membership.RoleAdmin
			created = true
		}

		memRow = &membershipDatamodel.OrganizationMembership{
			UserID:         userID,
			OrganizationID: org.ID,
			Role:           string(role),
		}
		if err := tx.CreateMembership(ctx, memRow); err != nil {
			if errors.Is(err, internal.ErrMembershipExists) {
				return internal.ErrMembershipExists
			}
			return internal.NewInternalError("Failed to create membership", err)
		}
		orgRow = org
		return nil
	})

	if errors.Is(err, internal.ErrMembershipExists) {
		// Lost a race with a concurrent onboarding of the same identity.
		existing, lookupErr := s.existing(ctx, s.store, userID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	s.logger.Info("onboarding complete",
		"user_id", userID,
		"organization_id", orgRow.ID,
		"slug", orgRow.Slug,
		"role", memRow.Role,
		"created", created)

	if created {
		s.publish(ctx, events.NewOrganizationCreatedEvent(orgRow.ID, orgRow.Slug, userID))
	}
	s.publish(ctx, events.NewMembershipJoinedEvent(memRow.ID, orgRow.ID, userID, memRow.Role))

	return &Result{
		Organization: organization.FromDataModel(orgRow),
		Membership:   membership.FromDataModel(memRow),
		Created:      created,
		Route:        membership.RouteDashboard,
	}, nil
}

func (s *Service) createOrganization(ctx context.Context, tx Store, candidate, name string) (*orgDatamodel.Organization, error) {
	gen := s.slugs
	gen.Exists = tx.SlugExists

	slug, err := gen.Unique(ctx, candidate)
	if err != nil {
		return nil, internal.NewInternalError("Failed to generate organization code", err)
	}

	org := &orgDatamodel.Organization{Name: name, Slug: slug}
	if err := tx.CreateOrganization(ctx, org); err != nil {
		if errors.Is(err, internal.ErrSlugTaken) {
			return nil, internal.ErrSlugTaken
		}
		return nil, internal.NewInternalError("Failed to create organization", err)
	}

	if err := tx.CreateCategories(ctx, category.Defaults(org.ID)); err != nil {
		return nil, internal.NewInternalError("Failed to seed categories", err)
	}
	return org, nil
}

// existing returns the caller's current membership as an onboarding result,
// or nil when there is none.
func (s *Service) existing(ctx context.Context, store Store, userID string) (*Result, error) {
	rows, err := store.FindMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, internal.ErrOrganizationLoad.WithCause(err).WithRedirect(membership.RouteDashboard)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		return nil, internal.ErrMultipleMemberships.WithRedirect(membership.RouteDashboard)
	}

	org, err := store.GetOrganization(ctx, rows[0].OrganizationID)
	if err != nil {
		return nil, internal.ErrOrganizationLoad.WithCause(err).WithRedirect(membership.RouteDashboard)
	}

	s.logger.Debug("onboarding skipped, identity already has a membership",
		"user_id", userID, "organization_id", org.ID)

	return &Result{
		Organization: organization.FromDataModel(org),
		Membership:   membership.FromDataModel(rows[0]),
		Created:      false,
		Route:        membership.RouteDashboard,
	}, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}
