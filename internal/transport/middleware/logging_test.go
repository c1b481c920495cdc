package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expenseflow/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoggingMiddleware", func() {
	var (
		logs     *bytes.Buffer
		received string
		handler  http.Handler
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		lg := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		handler = middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			received = string(body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "issued-access",
				"refresh_token": "issued-refresh",
				"user":          map[string]string{"email": "ada@acme.test"},
			})
		}))
	})

	signIn := func() *httptest.ResponseRecorder {
		body := `{"email":"ada@acme.test","password":"hunter22","devices":[{"push_token":"device-secret"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer header-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("keeps passwords, tokens and auth headers out of the log", func() {
		rec := signIn()
		Expect(rec.Code).To(Equal(http.StatusCreated))

		out := logs.String()
		Expect(out).NotTo(ContainSubstring("hunter22"))
		Expect(out).NotTo(ContainSubstring("device-secret"))
		Expect(out).NotTo(ContainSubstring("header-token"))
		Expect(out).NotTo(ContainSubstring("issued-access"))
		Expect(out).NotTo(ContainSubstring("issued-refresh"))
		Expect(out).To(ContainSubstring("[FILTERED]"))
		Expect(out).To(ContainSubstring("ada@acme.test"))
	})

	It("passes the full body on to the handler", func() {
		rec := signIn()
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(received).To(ContainSubstring(`"password":"hunter22"`))
		Expect(rec.Body.String()).To(ContainSubstring("issued-access"))
	})

	It("drops oversized and malformed bodies instead of logging them", func() {
		big := `{"note":"` + strings.Repeat("x", 5000) + `","password":"hunter22"}`
		for _, body := range []string{big, `{"password":"hunter22"`} {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			handler.ServeHTTP(httptest.NewRecorder(), req)
			Expect(received).To(Equal(body))
		}

		Expect(logs.String()).To(ContainSubstring("[TRUNCATED]"))
		Expect(logs.String()).To(ContainSubstring("[UNPARSEABLE]"))
		Expect(logs.String()).NotTo(ContainSubstring("hunter22"))
	})

	It("logs client errors at warn level", func() {
		h := middleware.LoggingMiddleware(slog.New(slog.NewJSONHandler(logs, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		Expect(logs.String()).To(ContainSubstring(`"level":"WARN"`))
		Expect(logs.String()).To(ContainSubstring(`"status_code":404`))
	})
})
