package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	"github.com/frahmantamala/expenseflow/internal/expense"
	"github.com/frahmantamala/expenseflow/internal/export"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	"github.com/frahmantamala/expenseflow/internal/organization"
	"github.com/frahmantamala/expenseflow/internal/profile"
	"github.com/frahmantamala/expenseflow/internal/receipt"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/frahmantamala/expenseflow/internal/transport/openapi"
	"github.com/frahmantamala/expenseflow/internal/transport/rest"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// tokenAuth treats the bearer token as the user ID.
type tokenAuth struct {
	identity.ServiceAPI
}

func (tokenAuth) Authenticate(_ context.Context, token string) (*identity.User, error) {
	if token == "bad" {
		return nil, internal.ErrInvalidToken
	}
	return &identity.User{ID: token, Email: token + "@acme.test"}, nil
}

type staticResolver map[string]membership.Resolution

func (s staticResolver) Resolve(_ context.Context, userID string) (membership.Resolution, error) {
	if res, ok := s[userID]; ok {
		return res, nil
	}
	return membership.Resolution{UserID: userID, State: membership.StateNoMembership}, nil
}

type emptySource struct{}

func (emptySource) ListForExport(context.Context, expense.ExportFilter) ([]*expenseDatamodel.ExportRow, error) {
	return nil, nil
}

func active(userID string, role membership.Role) membership.Resolution {
	return membership.Resolution{
		UserID:       userID,
		State:        membership.StateActive,
		Role:         role,
		Membership:   &membership.Membership{ID: "m-" + userID, OrganizationID: "org-1", UserID: userID, Role: role},
		Organization: &organization.Organization{ID: "org-1", Name: "Acme", Slug: "acme"},
	}
}

func decodeError(rec *httptest.ResponseRecorder) *internal.AppError {
	var body struct {
		Error struct {
			Type     internal.ErrorType `json:"type"`
			Code     internal.ErrorCode `json:"code"`
			Redirect string             `json:"redirect"`
		} `json:"error"`
	}
	Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
	return &internal.AppError{Type: body.Error.Type, Code: body.Error.Code, Redirect: body.Error.Redirect}
}

var _ = Describe("Router", func() {
	var (
		router http.Handler
		mux    *chi.Mux
	)

	BeforeEach(func() {
		lg := logger.Discard()
		base := transport.NewBaseHandler(lg)
		resolver := staticResolver{
			"employee":   active("employee", membership.RoleEmployee),
			"accounts":   active("accounts", membership.RoleAccounts),
			"unassigned": {UserID: "unassigned", State: membership.StateUnassigned, Role: membership.RoleUnassigned},
		}

		h := rest.Handlers{
			Identity:   identity.NewHandler(base, tokenAuth{}),
			Guard:      membership.NewGuard(base, resolver),
			Profile:    &profile.Handler{},
			Membership: &membership.Handler{},
			Onboarding: &onboarding.Handler{},
			Category:   &category.Handler{},
			Expense:    &expense.Handler{},
			Receipt:    &receipt.Handler{},
			Export:     export.NewHandler(base, export.NewService(emptySource{}, lg)),
			Health:     &rest.HealthHandler{},
		}
		mux = chi.NewRouter()
		rest.RegisterAllRoutes(mux, h, rest.RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}}, lg)
		router = mux
	})

	serve := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("answers ping without authentication", func() {
		rec := serve(http.MethodGet, "/api/v1/ping", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("serves the openapi document", func() {
		rec := serve(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("ExpenseFlow API"))
	})

	It("rejects protected routes without a token and points at sign in", func() {
		rec := serve(http.MethodGet, "/api/v1/categories", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(decodeError(rec).Redirect).To(Equal(identity.RouteAuth))

		rec = serve(http.MethodGet, "/api/v1/categories", "bad")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("sends identities without a membership to onboarding", func() {
		rec := serve(http.MethodGet, "/api/v1/expenses/", "stranger")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		appErr := decodeError(rec)
		Expect(appErr.Code).To(Equal(internal.ErrCodeNoMembership))
		Expect(appErr.Redirect).To(Equal(membership.RouteOnboarding))
	})

	It("sends unassigned members to the pending screen", func() {
		rec := serve(http.MethodGet, "/api/v1/categories", "unassigned")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(decodeError(rec).Redirect).To(Equal(membership.RoutePending))
	})

	DescribeTable("role gates",
		func(method, path, token string) {
			rec := serve(method, path, token)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			appErr := decodeError(rec)
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientRole))
			Expect(appErr.Redirect).To(Equal(membership.RouteDashboard))
		},
		Entry("employee approving", http.MethodPatch, "/api/v1/expenses/e-1/approve", "employee"),
		Entry("employee rejecting", http.MethodPatch, "/api/v1/expenses/e-1/reject", "employee"),
		Entry("employee reimbursing", http.MethodPatch, "/api/v1/expenses/e-1/reimburse", "employee"),
		Entry("employee on the approval queue", http.MethodGet, "/api/v1/hr/approvals", "employee"),
		Entry("employee exporting", http.MethodGet, "/api/v1/accounts/export", "employee"),
		Entry("accounts approving", http.MethodPatch, "/api/v1/expenses/e-1/approve", "accounts"),
		Entry("accounts managing members", http.MethodGet, "/api/v1/admin/members", "accounts"),
	)

	It("lets accounts export a workbook", func() {
		rec := serve(http.MethodGet, "/api/v1/accounts/export?status=reimbursed", "accounts")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("expenses-acme-reimbursed.xlsx"))
	})

	It("documents every mounted api route", func() {
		doc, err := openapi.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var undocumented []string
		walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, openapi.BasePath) {
				return nil
			}
			path := strings.TrimPrefix(route, openapi.BasePath)
			if len(path) > 1 {
				path = strings.TrimSuffix(path, "/")
			}
			item := doc.Paths.Find(path)
			if item == nil || item.GetOperation(method) == nil {
				undocumented = append(undocumented, method+" "+path)
			}
			return nil
		}
		Expect(chi.Walk(mux, walk)).To(Succeed())
		Expect(undocumented).To(BeEmpty())
	})
})
