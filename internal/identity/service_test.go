package identity_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	magiclinkDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/magiclink"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

type mockIdentityRepository struct {
	mu       sync.Mutex
	profiles map[string]*profileDatamodel.Profile
	links    map[string]*magiclinkDatamodel.MagicLink
	// beforeCreate runs at the start of CreateProfile, outside the lock.
	beforeCreate func()
}

func newMockIdentityRepository() *mockIdentityRepository {
	return &mockIdentityRepository{
		profiles: make(map[string]*profileDatamodel.Profile),
		links:    make(map[string]*magiclinkDatamodel.MagicLink),
	}
}

func (m *mockIdentityRepository) GetProfileByEmail(_ context.Context, email string) (*profileDatamodel.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, internal.ErrProfileNotFound
}

func (m *mockIdentityRepository) GetProfileByID(_ context.Context, id string) (*profileDatamodel.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, internal.ErrProfileNotFound
}

func (m *mockIdentityRepository) CreateProfile(_ context.Context, p *profileDatamodel.Profile) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.Email == p.Email {
			return internal.ErrEmailTaken
		}
	}
	p.ID = uuid.NewString()
	m.profiles[p.ID] = p
	return nil
}

func (m *mockIdentityRepository) CreateMagicLink(_ context.Context, link *magiclinkDatamodel.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.TokenHash] = link
	return nil
}

func (m *mockIdentityRepository) ConsumeMagicLink(_ context.Context, tokenHash string, now time.Time) (*magiclinkDatamodel.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[tokenHash]
	if !ok || link.UsedAt != nil || !link.ExpiresAt.After(now) {
		return nil, internal.ErrMagicLinkInvalid
	}
	link.UsedAt = &now
	return link, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturingPublisher) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturingPublisher) last() events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

const (
	accessSecret  = "access-secret-access-secret-0123456789"
	refreshSecret = "refresh-secret-refresh-secret-0123456789"
)

var _ = Describe("IdentityService", func() {
	var (
		ctx       context.Context
		repo      *mockIdentityRepository
		tokens    *identity.JWTTokenGenerator
		revoked   *identity.MemoryRevocationStore
		publisher *capturingPublisher
		service   *identity.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockIdentityRepository()
		tokens = identity.NewJWTTokenGenerator(accessSecret, refreshSecret, 15*time.Minute, 24*time.Hour)
		revoked = identity.NewMemoryRevocationStore()
		publisher = &capturingPublisher{}
		service = identity.NewService(repo, tokens, revoked, publisher, identity.Options{
			BCryptCost:   bcrypt.MinCost,
			MagicLinkTTL: 10 * time.Minute,
			BaseURL:      "https://app.example.com/",
		}, logger.Discard())
	})

	Describe("SignUp", func() {
		It("creates a profile and returns a token pair", func() {
			resp, err := service.SignUp(ctx, identity.SignUpDTO{Email: " Jane@Example.com ", Password: "s3cretpass", FullName: " Jane Doe "})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.AccessToken).NotTo(BeEmpty())
			Expect(resp.RefreshToken).NotTo(BeEmpty())
			Expect(resp.User.Email).To(Equal("jane@example.com"))

			p, err := repo.GetProfileByEmail(ctx, "jane@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FullName).To(Equal("Jane Doe"))
			Expect(*p.PasswordHash).NotTo(Equal("s3cretpass"))
		})

		It("rejects a duplicate email", func() {
			_, err := service.SignUp(ctx, identity.SignUpDTO{Email: "a@example.com", Password: "password1", FullName: "A"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.SignUp(ctx, identity.SignUpDTO{Email: "A@example.com", Password: "password2", FullName: "B"})
			Expect(err).To(MatchError(internal.ErrEmailTaken))
		})

		It("reports every invalid field", func() {
			_, err := service.SignUp(ctx, identity.SignUpDTO{Email: "nope", Password: "short"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors).To(HaveLen(3))
		})
	})

	Describe("SignIn", func() {
		BeforeEach(func() {
			_, err := service.SignUp(ctx, identity.SignUpDTO{Email: "user@example.com", Password: "correct_password", FullName: "User"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts the right password", func() {
			resp, err := service.SignIn(ctx, identity.SignInDTO{Email: "USER@example.com", Password: "correct_password"})
			Expect(err).NotTo(HaveOccurred())

			user, err := service.Authenticate(ctx, resp.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("user@example.com"))
		})

		It("rejects a wrong password and an unknown email the same way", func() {
			_, err := service.SignIn(ctx, identity.SignInDTO{Email: "user@example.com", Password: "wrong"})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))

			_, err = service.SignIn(ctx, identity.SignInDTO{Email: "ghost@example.com", Password: "whatever"})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})
	})

	Describe("magic links", func() {
		tokenFrom := func() string {
			evt, ok := publisher.last().(*events.MagicLinkEvent)
			Expect(ok).To(BeTrue())
			Expect(evt.Link).To(HavePrefix("https://app.example.com/auth?magic_token="))
			u, err := url.Parse(evt.Link)
			Expect(err).NotTo(HaveOccurred())
			return u.Query().Get("magic_token")
		}

		It("creates the profile on first use and is single use", func() {
			Expect(service.RequestMagicLink(ctx, identity.MagicLinkDTO{Email: "new.person@example.com"})).To(Succeed())
			token := tokenFrom()

			for hash := range repo.links {
				Expect(hash).NotTo(Equal(token))
			}

			resp, err := service.RedeemMagicLink(ctx, identity.VerifyMagicLinkDTO{Token: token})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.User.Email).To(Equal("new.person@example.com"))

			p, err := repo.GetProfileByEmail(ctx, "new.person@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FullName).To(Equal("new.person"))
			Expect(p.PasswordHash).To(BeNil())

			_, err = service.RedeemMagicLink(ctx, identity.VerifyMagicLinkDTO{Token: token})
			Expect(err).To(MatchError(internal.ErrMagicLinkInvalid))
		})

		It("signs in to the account created by a concurrent first use", func() {
			Expect(service.RequestMagicLink(ctx, identity.MagicLinkDTO{Email: "twice@example.com"})).To(Succeed())
			token := tokenFrom()

			winner := &profileDatamodel.Profile{Email: "twice@example.com", FullName: "twice"}
			repo.beforeCreate = func() {
				repo.beforeCreate = nil
				Expect(repo.CreateProfile(ctx, winner)).To(Succeed())
			}

			resp, err := service.RedeemMagicLink(ctx, identity.VerifyMagicLinkDTO{Token: token})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.User.ID).To(Equal(winner.ID))
			Expect(repo.profiles).To(HaveLen(1))
		})

		It("rejects an unknown token", func() {
			_, err := service.RedeemMagicLink(ctx, identity.VerifyMagicLinkDTO{Token: strings.Repeat("ab", 32)})
			Expect(err).To(MatchError(internal.ErrMagicLinkInvalid))
		})
	})

	Describe("Refresh and SignOut", func() {
		var pair *identity.AuthTokens

		BeforeEach(func() {
			var err error
			pair, err = service.SignUp(ctx, identity.SignUpDTO{Email: "r@example.com", Password: "password1", FullName: "R"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rotates the refresh token", func() {
			next, err := service.Refresh(ctx, identity.RefreshTokenDTO{RefreshToken: pair.RefreshToken})
			Expect(err).NotTo(HaveOccurred())
			Expect(next.RefreshToken).NotTo(Equal(pair.RefreshToken))

			_, err = service.Refresh(ctx, identity.RefreshTokenDTO{RefreshToken: pair.RefreshToken})
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
		})

		It("does not accept an access token as a refresh token", func() {
			_, err := service.Refresh(ctx, identity.RefreshTokenDTO{RefreshToken: pair.AccessToken})
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("revokes both tokens on sign out", func() {
			user, err := service.Authenticate(ctx, pair.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.SignOut(ctx, user, identity.SignOutDTO{RefreshToken: pair.RefreshToken})).To(Succeed())

			_, err = service.Authenticate(ctx, pair.AccessToken)
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
			_, err = service.Refresh(ctx, identity.RefreshTokenDTO{RefreshToken: pair.RefreshToken})
			Expect(err).To(MatchError(internal.ErrTokenRevoked))
		})
	})
})
