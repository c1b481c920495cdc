package main_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"regexp"
	"sync"
	"time"

	"github.com/frahmantamala/expenseflow/cmd"
	"github.com/frahmantamala/expenseflow/internal"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	magiclinkDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/magiclink"
	membershipDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/membership"
	orgDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/organization"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/mailer"
	"github.com/frahmantamala/expenseflow/pkg/client"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Enqueue(msg mailer.Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return true
}

func (o *outbox) to(addr string) []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []mailer.Message
	for _, m := range o.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

var magicToken = regexp.MustCompile(`magic_token=([0-9a-f]{64})`)

func redirectOf(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Redirect
	}
	return ""
}

var _ = Describe("ExpenseFlow API", Ordered, func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		mail    *outbox
		bus     *events.EventBus
		baseURL string
	)

	newSession := func() (*client.Session, *client.Client) {
		c, err := client.New(baseURL)
		Expect(err).NotTo(HaveOccurred())
		return client.NewSession(c, &client.MemoryTokenStore{}), c
	}

	signUp := func(email, name string) (*client.Session, *client.Client) {
		s, c := newSession()
		Expect(s.SignUp(ctx, client.SignUpRequest{Email: email, Password: "password123", FullName: name})).To(Succeed())
		return s, c
	}

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		DeferCleanup(sqlDB.Close)

		Expect(db.AutoMigrate(
			&profileDatamodel.Profile{},
			&magiclinkDatamodel.MagicLink{},
			&orgDatamodel.Organization{},
			&membershipDatamodel.OrganizationMembership{},
			&categoryDatamodel.ExpenseCategory{},
			&expenseDatamodel.Expense{},
		)).To(Succeed())

		templates, err := mailer.LoadTemplates()
		Expect(err).NotTo(HaveOccurred())

		lg := logger.Discard()
		mail = &outbox{}
		bus = events.NewEventBus(lg)
		deps := &cmd.Dependencies{
			Config: &internal.Config{
				Security: internal.SecurityConfig{
					AccessTokenSecret:    "access-secret-access-secret-access-secret",
					RefreshTokenSecret:   "refresh-secret-refresh-secret-refresh-secret",
					AccessTokenDuration:  15 * time.Minute,
					RefreshTokenDuration: time.Hour,
					MagicLinkDuration:    15 * time.Minute,
					BCryptCost:           4,
				},
				App: internal.AppConfig{Env: "test", BaseURL: "http://app.test"},
			},
			DB:          db,
			EventBus:    bus,
			Mail:        mail,
			Templates:   templates,
			Revocations: identity.NewMemoryRevocationStore(),
			Logger:      lg,
		}

		srv := httptest.NewServer(deps.NewRouter())
		DeferCleanup(srv.Close)
		DeferCleanup(bus.Wait)
		baseURL = srv.URL
	})

	var (
		orgSlug  string
		admin    *client.Client
		employee *client.Client
		hr       *client.Client
	)

	It("routes a fresh account to onboarding", func() {
		s, c := signUp("ada@acme.test", "Ada Admin")
		admin = c

		Expect(s.Current().Route).To(Equal("/onboarding"))
		Expect(s.Current().Resolution.State).To(Equal(client.StateNoMembership))
	})

	It("creates an organization with an admin and the default categories", func() {
		result, err := admin.Onboard(ctx, client.OnboardRequest{OrganizationName: "Acme"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Created).To(BeTrue())
		Expect(result.Membership.Role).To(Equal("admin"))
		Expect(result.Organization.Slug).To(MatchRegexp(`^acme(-[a-z0-9]{4})?$`))
		orgSlug = result.Organization.Slug

		var count int64
		Expect(db.Model(&categoryDatamodel.ExpenseCategory{}).Where("organization_id = ?", result.Organization.ID).Count(&count).Error).To(Succeed())
		Expect(count).To(BeEquivalentTo(5))

		again, err := admin.Onboard(ctx, client.OnboardRequest{OrganizationName: "Another"})
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Created).To(BeFalse())
		Expect(again.Organization.ID).To(Equal(result.Organization.ID))
	})

	It("joins by code as unassigned and holds the member on the pending screen", func() {
		s, c := signUp("eko@acme.test", "Eko Employee")
		employee = c

		result, err := employee.Onboard(ctx, client.OnboardRequest{Code: orgSlug})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Created).To(BeFalse())
		Expect(result.Membership.Role).To(Equal("unassigned"))

		Expect(s.Reload(ctx)).To(Succeed())
		Expect(s.Current().Route).To(Equal("/pending"))

		_, err = employee.SubmitExpense(ctx, client.SubmitExpenseRequest{Title: "Taxi", Amount: decimal.RequireFromString("10")})
		Expect(client.HasCode(err, "ROLE_UNASSIGNED")).To(BeTrue())
		Expect(redirectOf(err)).To(Equal("/pending"))
	})

	It("lets the admin assign roles but never admin", func() {
		s, c := signUp("hana@acme.test", "Hana HR")
		hr = c
		_, err := hr.Onboard(ctx, client.OnboardRequest{Code: orgSlug})
		Expect(err).NotTo(HaveOccurred())

		view, err := admin.Members(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(view.Members).To(HaveLen(3))
		Expect(view.AssignableRoles).NotTo(ContainElement("admin"))

		ids := map[string]string{}
		for _, m := range view.Members {
			ids[m.Email] = m.ID
		}

		_, err = admin.AssignRole(ctx, ids["eko@acme.test"], "admin")
		Expect(client.HasCode(err, "ROLE_NOT_ASSIGNABLE")).To(BeTrue())

		m, err := admin.AssignRole(ctx, ids["eko@acme.test"], "employee")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Role).To(Equal("employee"))
		_, err = admin.AssignRole(ctx, ids["hana@acme.test"], "hr")
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Reload(ctx)).To(Succeed())
		Expect(s.Current().Route).To(Equal("/dashboard"))
		Expect(s.Current().Resolution.Role).To(Equal("hr"))

		Eventually(func() []mailer.Message { return mail.to("hana@acme.test") }).Should(ContainElement(
			HaveField("Subject", "Your ExpenseFlow role is now hr"),
		))
	})

	It("redirects non-admins away from member management without data", func() {
		view, err := employee.Members(ctx)
		Expect(view).To(BeNil())
		Expect(client.HasCode(err, "INSUFFICIENT_ROLE")).To(BeTrue())
		Expect(redirectOf(err)).To(Equal("/dashboard"))
	})

	It("round trips a submitted expense", func() {
		exp, err := employee.SubmitExpense(ctx, client.SubmitExpenseRequest{
			Title:  "  Airport taxi  ",
			Amount: decimal.RequireFromString("42.50"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(exp.Title).To(Equal("Airport taxi"))
		Expect(exp.Status).To(Equal("pending"))

		mine, err := employee.MyExpenses(ctx, "", 10, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(mine).To(HaveLen(1))
		Expect(mine[0].Amount.Equal(decimal.RequireFromString("42.5"))).To(BeTrue())
		Expect(mine[0].Currency).To(Equal("USD"))
	})

	It("lets the first of two stale queues win the decision", func() {
		first := client.NewApprovalQueue(hr, 10)
		second := client.NewApprovalQueue(admin, 10)
		Expect(first.Refresh(ctx)).To(Succeed())
		Expect(second.Refresh(ctx)).To(Succeed())
		Expect(first.Len()).To(Equal(1))
		id := first.Items()[0].ID

		decided, err := first.Approve(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(decided.Status).To(Equal("approved"))
		Expect(first.Len()).To(BeZero())

		Expect(second.Len()).To(Equal(1))
		_, err = second.Reject(ctx, id, "late")
		Expect(client.HasCode(err, "INVALID_EXPENSE_STATUS")).To(BeTrue())

		Expect(second.Refresh(ctx)).To(Succeed())
		Expect(second.Len()).To(BeZero())

		Eventually(func() []mailer.Message { return mail.to("eko@acme.test") }).Should(ContainElement(
			HaveField("Subject", "Expense approved: Airport taxi"),
		))
	})

	It("signs in through an emailed magic link once", func() {
		c, err := client.New(baseURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.RequestMagicLink(ctx, "ada@acme.test")).To(Succeed())

		var token string
		Eventually(func() string {
			for _, m := range mail.to("ada@acme.test") {
				if match := magicToken.FindStringSubmatch(m.HTML); match != nil {
					token = match[1]
				}
			}
			return token
		}).ShouldNot(BeEmpty())

		s, _ := newSession()
		Expect(s.RedeemMagicLink(ctx, token)).To(Succeed())
		Expect(s.Current().Resolution.Role).To(Equal("admin"))

		Expect(client.HasCode(s.RedeemMagicLink(ctx, token), "MAGIC_LINK_INVALID")).To(BeTrue())
		Expect(s.Current().SignedIn()).To(BeFalse())
	})

	It("revokes the access token on sign out", func() {
		s, c := newSession()
		Expect(s.SignIn(ctx, "eko@acme.test", "password123")).To(Succeed())
		token := c.AccessToken()
		Expect(s.SignOut(ctx)).To(Succeed())

		c.SetAccessToken(token)
		_, err := c.Session(ctx)
		Expect(client.IsUnauthorized(err)).To(BeTrue())
	})
})
