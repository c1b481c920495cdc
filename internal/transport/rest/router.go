package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expenseflow/internal/category"
	"github.com/frahmantamala/expenseflow/internal/expense"
	"github.com/frahmantamala/expenseflow/internal/export"
	"github.com/frahmantamala/expenseflow/internal/identity"
	"github.com/frahmantamala/expenseflow/internal/membership"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	"github.com/frahmantamala/expenseflow/internal/profile"
	"github.com/frahmantamala/expenseflow/internal/receipt"
	"github.com/frahmantamala/expenseflow/internal/transport/middleware"
	"github.com/frahmantamala/expenseflow/internal/transport/openapi"
	"github.com/frahmantamala/expenseflow/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers is everything the router mounts. Identity and Guard are required;
// a nil feature handler leaves its routes unregistered.
type Handlers struct {
	Identity   *identity.Handler
	Guard      *membership.Guard
	Profile    *profile.Handler
	Membership *membership.Handler
	Onboarding *onboarding.Handler
	Category   *category.Handler
	Expense    *expense.Handler
	Receipt    *receipt.Handler
	Export     *export.Handler
	Health     *HealthHandler
}

type RouterOptions struct {
	AllowedOrigins []string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions, logger *slog.Logger) {
	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", openapi.Handler())
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
		}
		r.Get("/ping", pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/signup", h.Identity.SignUp)
			ar.Post("/signin", h.Identity.SignIn)
			ar.Post("/magic-link", h.Identity.RequestMagicLink)
			ar.Post("/magic-link/verify", h.Identity.VerifyMagicLink)
			ar.Post("/refresh", h.Identity.Refresh)
			ar.With(h.Identity.AuthMiddleware).Post("/signout", h.Identity.SignOut)
		})

		// Authenticated, any membership state
		r.Group(func(pr chi.Router) {
			pr.Use(h.Identity.AuthMiddleware)

			if h.Membership != nil {
				pr.Get("/session", h.Membership.Session)
			}
			if h.Profile != nil {
				pr.Get("/profile", h.Profile.GetProfile)
				pr.Patch("/profile", h.Profile.UpdateProfile)
			}
			if h.Onboarding != nil {
				pr.Post("/onboarding", h.Onboarding.Onboard)
			}
		})

		// Authenticated with an assigned role; finer role checks per route
		r.Group(func(mr chi.Router) {
			mr.Use(h.Identity.AuthMiddleware)
			mr.Use(h.Guard.RequireActive)

			if h.Category != nil {
				mr.Get("/categories", h.Category.GetCategories)
			}

			if h.Expense != nil {
				mr.Route("/expenses", func(er chi.Router) {
					er.Post("/", h.Expense.CreateExpense)
					er.Get("/", h.Expense.GetUserExpenses)
					er.Get("/{id}", h.Expense.GetExpense)
					if h.Receipt != nil {
						er.Get("/{id}/receipt", h.Receipt.GetReceipt)
					}

					er.With(h.Guard.RequireRoles(membership.ApproverRoles...)).Patch("/{id}/approve", h.Expense.ApproveExpense)
					er.With(h.Guard.RequireRoles(membership.ApproverRoles...)).Patch("/{id}/reject", h.Expense.RejectExpense)
					er.With(h.Guard.RequireRoles(membership.AccountsRoles...)).Patch("/{id}/reimburse", h.Expense.ReimburseExpense)
				})

				mr.With(h.Guard.RequireRoles(membership.ApproverRoles...)).Get("/hr/approvals", h.Expense.GetPendingApprovals)
			}

			if h.Receipt != nil {
				mr.Post("/receipts/upload-url", h.Receipt.CreateUploadURL)
			}

			mr.Route("/accounts", func(acr chi.Router) {
				acr.Use(h.Guard.RequireRoles(membership.AccountsRoles...))
				if h.Expense != nil {
					acr.Get("/expenses", h.Expense.GetAllExpenses)
				}
				if h.Export != nil {
					acr.Get("/export", h.Export.ExportExpenses)
				}
			})

			mr.Route("/admin", func(adr chi.Router) {
				adr.Use(h.Guard.RequireRoles(membership.AdminRoles...))
				if h.Membership != nil {
					adr.Get("/members", h.Membership.ListMembers)
					adr.Patch("/members/{id}/role", h.Membership.AssignRole)
				}
				if h.Category != nil {
					adr.Get("/categories", h.Category.GetAllCategories)
					adr.Post("/categories", h.Category.CreateCategory)
					adr.Patch("/categories/{id}/active", h.Category.SetActive)
				}
			})
		})
	})
}

// NewRouter builds a chi mux with every route mounted.
func NewRouter(h Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	router := chi.NewRouter()
	RegisterAllRoutes(router, h, opts, logger)
	return router
}
