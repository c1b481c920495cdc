package onboarding_test

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/frahmantamala/expenseflow/internal"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	"github.com/frahmantamala/expenseflow/internal/organization"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type memoryState struct {
	orgs        []*orgDatamodel.Organization
	memberships []*membershipDatamodel.OrganizationMembership
	categories  []*categoryDatamodel.ExpenseCategory
}

func (s memoryState) clone() memoryState {
	return memoryState{
		orgs:        append([]*orgDatamodel.Organization(nil), s.orgs...),
		memberships: append([]*membershipDatamodel.OrganizationMembership(nil), s.memberships...),
		categories:  append([]*categoryDatamodel.ExpenseCategory(nil), s.categories...),
	}
}

// memoryStore rolls back to a snapshot when a transaction fails.
type memoryStore struct {
	mu             sync.Mutex
	state          memoryState
	failCategories bool
	txCount        int
}

func (m *memoryStore) FindOrganizationBySlug(_ context.Context, slug string) (*orgDatamodel.Organization, error) {
	for _, o := range m.state.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetOrganization(_ context.Context, id string) (*orgDatamodel.Organization, error) {
	for _, o := range m.state.orgs {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, internal.ErrOrganizationNotFound
}

func (m *memoryStore) FindMembershipsByUserID(_ context.Context, userID string) ([]*membershipDatamodel.OrganizationMembership, error) {
	var out []*membershipDatamodel.OrganizationMembership
	for _, r := range m.state.memberships {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	o, _ := m.FindOrganizationBySlug(ctx, slug)
	return o != nil, nil
}

func (m *memoryStore) CreateOrganization(_ context.Context, org *orgDatamodel.Organization) error {
	org.ID = uuid.NewString()
	m.state.orgs = append(m.state.orgs, org)
	return nil
}

func (m *memoryStore) CreateMembership(_ context.Context, r *membershipDatamodel.OrganizationMembership) error {
	for _, existing := range m.state.memberships {
		if existing.UserID == r.UserID {
			return internal.ErrMembershipExists
		}
	}
	r.ID = uuid.NewString()
	m.state.memberships = append(m.state.memberships, r)
	return nil
}

func (m *memoryStore) CreateCategories(_ context.Context, categories []*categoryDatamodel.ExpenseCategory) error {
	if m.failCategories {
		return errors.New("disk full")
	}
	m.state.categories = append(m.state.categories, categories...)
	return nil
}

func (m *memoryStore) RunInTx(_ context.Context, fn func(onboarding.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	snapshot := m.state.clone()
	if err := fn(m); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memoryStore) categoriesOf(orgID string) int {
	n := 0
	for _, c := range m.state.categories {
		if c.OrganizationID == orgID {
			n++
		}
	}
	return n
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (c *capturingPublisher) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e.EventType())
	return nil
}

var suffixPattern = regexp.MustCompile(`^acme-[a-z0-9]{4}$`)

var _ = Describe("OnboardingService", func() {
	var (
		ctx       context.Context
		store     *memoryStore
		publisher *capturingPublisher
		service   *onboarding.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &memoryStore{}
		publisher = &capturingPublisher{}
		service = onboarding.NewService(store, publisher, logger.Discard())
	})

	Context("when no organization uses the code", func() {
		It("creates it, seeds five categories and makes the caller admin", func() {
			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{OrganizationName: "Acme Inc", Code: "ACME"})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Created).To(BeTrue())
			Expect(result.Route).To(Equal("/dashboard"))
			Expect(result.Organization.Slug).To(Equal("acme"))
			Expect(result.Organization.Name).To(Equal("Acme Inc"))
			Expect(string(result.Membership.Role)).To(Equal("admin"))
			Expect(store.categoriesOf(result.Organization.ID)).To(Equal(5))
			Expect(publisher.events).To(Equal([]string{events.OrganizationCreated, events.MembershipJoined}))
		})

		It("derives the slug from the name when no code is given", func() {
			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{OrganizationName: "  Acme & Sons, Ltd.  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Organization.Slug).To(Equal("acme-sons-ltd"))
		})

		It("names the organization after the code when no name is given", func() {
			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Organization.Name).To(Equal("acme"))
		})

		It("leaves nothing behind when seeding fails", func() {
			store.failCategories = true

			_, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).To(HaveOccurred())
			Expect(store.state.orgs).To(BeEmpty())
			Expect(store.state.memberships).To(BeEmpty())
			Expect(publisher.events).To(BeEmpty())
		})
	})

	Context("when the code belongs to an existing organization", func() {
		var acme *onboarding.Result

		BeforeEach(func() {
			var err error
			acme, err = service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			publisher.events = nil
		})

		It("joins as unassigned without creating anything", func() {
			result, err := service.Onboard(ctx, "user-v", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Created).To(BeFalse())
			Expect(result.Route).To(Equal("/dashboard"))
			Expect(result.Organization.ID).To(Equal(acme.Organization.ID))
			Expect(string(result.Membership.Role)).To(Equal("unassigned"))
			Expect(store.state.orgs).To(HaveLen(1))
			Expect(store.state.categories).To(HaveLen(5))
			Expect(publisher.events).To(Equal([]string{events.MembershipJoined}))
		})

		It("is idempotent for an identity that already joined", func() {
			first, err := service.Onboard(ctx, "user-v", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			txBefore := store.txCount

			second, err := service.Onboard(ctx, "user-v", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Membership.ID).To(Equal(first.Membership.ID))
			Expect(second.Created).To(BeFalse())
			Expect(store.state.memberships).To(HaveLen(2))
			Expect(store.txCount).To(Equal(txBefore))
		})

		It("returns the existing membership when another code is submitted", func() {
			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "globex"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Organization.Slug).To(Equal("acme"))
			Expect(result.Created).To(BeFalse())
			Expect(store.state.orgs).To(HaveLen(1))
		})
	})

	Context("when the slug is taken at creation time", func() {
		It("falls back to a suffixed slug", func() {
			// The lookup misses but the uniqueness probe sees a concurrent insert.
			racing := &racingStore{memoryStore: store, takenSlug: "acme"}
			service = onboarding.NewService(racing, publisher, logger.Discard())

			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Organization.Slug).To(MatchRegexp(suffixPattern.String()))
		})

		It("uses the injected suffix source", func() {
			racing := &racingStore{memoryStore: store, takenSlug: "acme"}
			service = onboarding.NewService(racing, publisher, logger.Discard()).
				WithSlugGenerator(organization.SlugGenerator{Suffix: func(int) (string, error) { return "zz99", nil }})

			result, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{Code: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Organization.Slug).To(Equal("acme-zz99"))
		})
	})

	It("rejects input without a usable name or code", func() {
		_, err := service.Onboard(ctx, "user-u", onboarding.OnboardDTO{OrganizationName: "!!!", Code: "  "})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))

		details, ok := appErr.Details.(internal.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidOrgCode)))
		Expect(store.txCount).To(BeZero())
	})
})

// racingStore reports takenSlug as used even though no organization row has it.
type racingStore struct {
	*memoryStore
	takenSlug string
}

func (r *racingStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	if slug == r.takenSlug {
		return true, nil
	}
	return r.memoryStore.SlugExists(ctx, slug)
}

func (r *racingStore) RunInTx(ctx context.Context, fn func(onboarding.Store) error) error {
	return r.memoryStore.RunInTx(ctx, func(onboarding.Store) error { return fn(r) })
}
