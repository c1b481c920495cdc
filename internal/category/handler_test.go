package category_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	categoryPostgres "github.com/frahmantamala/expenseflow/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/category"
	"github.com/frahmantamala/expenseflow/internal/transport"
	applogger "github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		db      *gorm.DB
		repo    category.RepositoryAPI
		handler *category.Handler
		router  chi.Router
	)

	withOrg := func(req *http.Request, orgID string) *http.Request {
		return req.WithContext(internal.ContextWithOrganizationID(context.Background(), orgID))
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&categoryDatamodel.ExpenseCategory{})).To(Succeed())

		repo = categoryPostgres.NewCategoryRepository(db)
		service := category.NewService(repo, applogger.Discard())
		handler = category.NewHandler(transport.NewBaseHandler(applogger.Discard()), service)

		for _, c := range category.Defaults("org-1") {
			Expect(repo.Create(context.Background(), c)).To(Succeed())
		}
		for _, c := range category.Defaults("org-2") {
			Expect(repo.Create(context.Background(), c)).To(Succeed())
		}

		router = chi.NewRouter()
		router.Get("/categories", handler.GetCategories)
		router.Post("/admin/categories", handler.CreateCategory)
		router.Patch("/admin/categories/{id}/active", handler.SetActive)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("should handle GET /categories request successfully", func() {
		req := withOrg(httptest.NewRequest(http.MethodGet, "/categories", nil), "org-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Categories).To(HaveLen(5))
		for _, c := range response.Categories {
			Expect(c.OrganizationID).To(Equal("org-1"))
		}
	})

	It("should hide a deactivated category from members", func() {
		categories, err := repo.ListByOrganization(context.Background(), "org-1", true)
		Expect(err).NotTo(HaveOccurred())
		target := categories[0]

		req := withOrg(httptest.NewRequest(http.MethodPatch, "/admin/categories/"+target.ID+"/active",
			strings.NewReader(`{"is_active": false}`)), "org-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		req = withOrg(httptest.NewRequest(http.MethodGet, "/categories", nil), "org-1")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Categories).To(HaveLen(4))
	})

	It("should create a category and reject a duplicate", func() {
		body := `{"name": "Training", "color": "#112233", "icon": "book"}`
		req := withOrg(httptest.NewRequest(http.MethodPost, "/admin/categories", strings.NewReader(body)), "org-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusCreated))

		req = withOrg(httptest.NewRequest(http.MethodPost, "/admin/categories", strings.NewReader(body)), "org-1")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring("DUPLICATE_CATEGORY"))
	})

	It("should reject unknown fields", func() {
		req := withOrg(httptest.NewRequest(http.MethodPost, "/admin/categories",
			strings.NewReader(`{"name": "Training", "budget": 10}`)), "org-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
