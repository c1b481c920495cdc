package profile_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/profile"
	"github.com/frahmantamala/expenseflow/internal/transport"
	applogger "github.com/frahmantamala/expenseflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Profile Handler", func() {
	var (
		handler *profile.Handler
		ada     *profileDatamodel.Profile
	)

	as := func(req *http.Request, userID string) *http.Request {
		return req.WithContext(identity.ContextWithUser(req.Context(), &identity.User{ID: userID, Email: "ada@acme.test"}))
	}

	BeforeEach(func() {
		db, service := openProfiles()
		ada = &profileDatamodel.Profile{Email: "ada@acme.test", FullName: "Ada"}
		Expect(db.Create(ada).Error).To(Succeed())
		handler = profile.NewHandler(transport.NewBaseHandler(applogger.Discard()), service)
	})

	It("returns the caller's profile", func() {
		rec := httptest.NewRecorder()
		handler.GetProfile(rec, as(httptest.NewRequest(http.MethodGet, "/profile", nil), ada.ID))

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["full_name"]).To(Equal("Ada"))
		Expect(body).NotTo(HaveKey("password_hash"))
	})

	It("rejects anonymous requests with the auth redirect", func() {
		rec := httptest.NewRecorder()
		handler.GetProfile(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring(`"redirect":"/auth"`))
	})

	It("updates the name", func() {
		req := as(httptest.NewRequest(http.MethodPatch, "/profile", strings.NewReader(`{"full_name":"Ada L"}`)), ada.ID)
		rec := httptest.NewRecorder()
		handler.UpdateProfile(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"full_name":"Ada L"`))
	})

	It("returns 400 for a malformed body", func() {
		req := as(httptest.NewRequest(http.MethodPatch, "/profile", strings.NewReader(`{`)), ada.ID)
		rec := httptest.NewRecorder()
		handler.UpdateProfile(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
