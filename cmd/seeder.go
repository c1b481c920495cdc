package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	categoryRepo "github.com/frahmantamala/expenseflow/internal/category/postgres"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/expense"
	expenseRepo "github.com/frahmantamala/expenseflow/internal/expense/postgres"
	identityRepo "github.com/frahmantamala/expenseflow/internal/identity/postgres"
	"github.com/frahmantamala/expenseflow/internal/membership"
	membershipRepo "github.com/frahmantamala/expenseflow/internal/membership/postgres"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	onboardingRepo "github.com/frahmantamala/expenseflow/internal/onboarding/postgres"
	organizationRepo "github.com/frahmantamala/expenseflow/internal/organization/postgres"
	"github.com/frahmantamala/expenseflow/internal/receipt"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const seedPassword = "password123"

type seedUser struct {
	Email    string
	FullName string
	Role     membership.Role
}

// The first user creates the organization and becomes its admin; the rest join it.
var seedUsers = []seedUser{
	{"admin@acme.test", "Ada Admin", membership.RoleAdmin},
	{"hr@acme.test", "Hana HR", membership.RoleHR},
	{"accounts@acme.test", "Aris Accounts", membership.RoleAccounts},
	{"employee@acme.test", "Eko Employee", membership.RoleEmployee},
	{"pending@acme.test", "Pia Pending", membership.RoleUnassigned},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo organization, one member per role and a few expenses.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		lg := logger.Init(logger.Options{Env: cfg.App.Env, Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		db, sqlDB, err := openDatabase(cfg.Database, lg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		ctx := context.Background()
		if clearData {
			if err := clearSeedData(ctx, db); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		if err := seed(ctx, db, cfg.Security.BCryptCost); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

func clearSeedData(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(
		"TRUNCATE expenses, expense_categories, organization_memberships, organizations, magic_links, profiles CASCADE",
	).Error
}

func seed(ctx context.Context, db *gorm.DB, cost int) error {
	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	profiles := identityRepo.NewRepository(db)
	memberships := membershipRepo.NewMembershipRepository(db)
	resolver := membership.NewResolver(memberships, organizationRepo.NewOrganizationRepository(db), lg)
	onboard := onboarding.NewService(onboardingRepo.NewStore(db), bus, lg)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cost)
	if err != nil {
		return err
	}
	hashStr := string(hash)

	var (
		orgCode     string
		resolutions = make(map[membership.Role]membership.Resolution)
	)
	for i, u := range seedUsers {
		p, err := profiles.GetProfileByEmail(ctx, u.Email)
		switch {
		case errors.Is(err, internal.ErrProfileNotFound):
			p = &profileDatamodel.Profile{Email: u.Email, FullName: u.FullName, PasswordHash: &hashStr}
			if err := profiles.CreateProfile(ctx, p); err != nil {
				return fmt.Errorf("create %s: %w", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		case err != nil:
			return err
		default:
			fmt.Println("User already exists:", u.Email)
		}

		dto := onboarding.OnboardDTO{Code: orgCode}
		if i == 0 {
			dto = onboarding.OnboardDTO{OrganizationName: "Acme"}
		}
		result, err := onboard.Onboard(ctx, p.ID, dto)
		if err != nil {
			return fmt.Errorf("onboard %s: %w", u.Email, err)
		}
		orgCode = result.Organization.Slug

		if result.Membership.Role != u.Role {
			if err := memberships.UpdateRole(ctx, result.Organization.ID, result.Membership.ID, u.Role); err != nil {
				return fmt.Errorf("assign %s to %s: %w", u.Role, u.Email, err)
			}
		}

		res, err := resolver.Resolve(ctx, p.ID)
		if err != nil {
			return err
		}
		resolutions[u.Role] = res
	}
	fmt.Printf("Organization code: %s (password for every user: %s)\n", orgCode, seedPassword)

	return seedExpenses(ctx, db, resolutions)
}

func seedExpenses(ctx context.Context, db *gorm.DB, resolutions map[membership.Role]membership.Resolution) error {
	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	expenses := expense.NewService(expenseRepo.NewExpenseRepository(db), category.NewService(categoryRepo.NewCategoryRepository(db), lg), receipt.Keys{}, bus, lg)

	employee := resolutions[membership.RoleEmployee]
	existing, err := expenses.ListOwn(ctx, employee, expense.ListQuery{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Println("Expenses already seeded")
		return nil
	}

	vendor := "Blue Cab"
	submitted := []expense.CreateExpenseDTO{
		{Title: "Airport taxi", Amount: decimal.RequireFromString("42.50"), Currency: "USD", VendorName: &vendor},
		{Title: "Client dinner", Amount: decimal.RequireFromString("180.00"), Currency: "USD"},
		{Title: "Printer toner", Amount: decimal.RequireFromString("65.99"), Currency: "EUR"},
	}
	var ids []string
	for _, dto := range submitted {
		exp, err := expenses.Submit(ctx, employee, dto)
		if err != nil {
			return fmt.Errorf("submit %q: %w", dto.Title, err)
		}
		ids = append(ids, exp.ID)
	}

	hr := resolutions[membership.RoleHR]
	if _, err := expenses.Approve(ctx, hr, ids[0]); err != nil {
		return err
	}
	if _, err := expenses.Reimburse(ctx, resolutions[membership.RoleAccounts], ids[0]); err != nil {
		return err
	}
	if _, err := expenses.Approve(ctx, hr, ids[1]); err != nil {
		return err
	}
	bus.Wait()

	fmt.Printf("Seeded %d expenses (one reimbursed, one approved, one pending)\n", len(ids))
	return nil
}
