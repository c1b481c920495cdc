package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	categoryRepo "github.com/frahmantamala/expenseflow/internal/category/postgres"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/expense"
	expenseRepo "github.com/frahmantamala/expenseflow/internal/expense/postgres"
	"github.com/frahmantamala/expenseflow/internal/export"
	"github.com/frahmantamala/expenseflow/internal/identity"
	identityRepo "github.com/frahmantamala/expenseflow/internal/identity/postgres"
	"github.com/frahmantamala/expenseflow/internal/mailer"
	"github.com/frahmantamala/expenseflow/internal/membership"
	membershipRepo "github.com/frahmantamala/expenseflow/internal/membership/postgres"
	"github.com/frahmantamala/expenseflow/internal/notification"
	"github.com/frahmantamala/expenseflow/internal/onboarding"
	onboardingRepo "github.com/frahmantamala/expenseflow/internal/onboarding/postgres"
	organizationRepo "github.com/frahmantamala/expenseflow/internal/organization/postgres"
	"github.com/frahmantamala/expenseflow/internal/profile"
	profileRepo "github.com/frahmantamala/expenseflow/internal/profile/postgres"
	"github.com/frahmantamala/expenseflow/internal/receipt"
	"github.com/frahmantamala/expenseflow/internal/receipt/s3store"
	"github.com/frahmantamala/expenseflow/internal/transport"
	"github.com/frahmantamala/expenseflow/internal/transport/openapi"
	"github.com/frahmantamala/expenseflow/internal/transport/rest"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies are the long-lived backends the services run on. Mail,
// Templates, Revocations and Storage may be swapped for in-memory versions;
// a nil Storage disables receipts.
type Dependencies struct {
	Config      *internal.Config
	DB          *gorm.DB
	SQL         *sqlx.DB
	Redis       *redis.Client
	EventBus    *events.EventBus
	Dispatcher  *mailer.Dispatcher
	Mail        notification.Queue
	Templates   notification.Renderer
	Revocations identity.RevocationStore
	Storage     receipt.ObjectStorage
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.NewRouter(),
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr, "env", deps.Config.App.Env)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed", "error", err)
			deps.Close(context.Background())
			os.Exit(1)
		}
	}

	timeout := deps.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}
	deps.Close(ctx)
	lg.Info("Server stopped")
}

// Close stops event delivery, drains queued mail, then releases the stores.
func (d *Dependencies) Close(ctx context.Context) {
	if d.EventBus != nil {
		d.EventBus.Wait()
	}
	if d.Dispatcher != nil {
		if err := d.Dispatcher.Shutdown(ctx); err != nil {
			d.Logger.Error("Mail dispatcher shutdown error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(logger.Options{
		Env:    cfg.App.Env,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if _, err := openapi.Load(ctx); err != nil {
		return nil, err
	}

	deps := &Dependencies{Config: cfg, Logger: lg}

	deps.DB, deps.SQL, err = openDatabase(cfg.Database, lg)
	if err != nil {
		return nil, err
	}

	deps.Revocations = identity.NewMemoryRevocationStore()
	if cfg.Redis.Enabled {
		deps.Redis, err = openRedis(cfg.Redis)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.Revocations = identity.NewRedisRevocationStore(deps.Redis)
	} else {
		lg.Warn("redis disabled; token revocations are kept in memory")
	}

	var sender mailer.Sender = mailer.LogSender{Logger: lg}
	if cfg.Mail.Enabled {
		sender = mailer.NewSMTPSender(cfg.Mail)
	} else {
		lg.Warn("mail disabled; outgoing mail is logged instead of sent")
	}
	templates, err := mailer.LoadTemplates()
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	deps.Templates = templates
	deps.Dispatcher = mailer.NewDispatcher(sender, mailer.Config{
		Workers:   cfg.Mail.Workers,
		QueueSize: cfg.Mail.QueueSize,
	}, lg)
	deps.Mail = deps.Dispatcher
	deps.EventBus = events.NewEventBus(lg)

	if cfg.Storage.Enabled {
		s3, err := s3store.New(ctx, cfg.Storage)
		if err != nil {
			deps.Close(ctx)
			return nil, fmt.Errorf("failed to initialize receipt storage: %w", err)
		}
		deps.Storage = s3
	} else {
		lg.Warn("receipt storage disabled")
	}

	return deps, nil
}

// NewRouter builds every service on top of d and mounts their handlers.
func (d *Dependencies) NewRouter() http.Handler {
	cfg, db, lg := d.Config, d.DB, d.Logger

	profileService := profile.NewService(profileRepo.NewProfileRepository(db), lg)
	notification.NewNotifier(profileService, d.Mail, d.Templates, cfg.App.BaseURL, lg).Register(d.EventBus)

	tokens := identity.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	identityService := identity.NewService(identityRepo.NewRepository(db), tokens, d.Revocations, d.EventBus, identity.Options{
		BCryptCost:   cfg.Security.BCryptCost,
		MagicLinkTTL: cfg.Security.MagicLinkDuration,
		BaseURL:      cfg.App.BaseURL,
	}, lg)

	memberships := membershipRepo.NewMembershipRepository(db)
	resolver := membership.NewResolver(memberships, organizationRepo.NewOrganizationRepository(db), lg)
	membershipService := membership.NewService(memberships, d.EventBus, lg)
	onboardingService := onboarding.NewService(onboardingRepo.NewStore(db), d.EventBus, lg)
	categoryService := category.NewService(categoryRepo.NewCategoryRepository(db), lg)

	expenses := expenseRepo.NewExpenseRepository(db)
	expenseService := expense.NewService(expenses, categoryService, receipt.Keys{}, d.EventBus, lg)
	receiptService := receipt.NewService(d.Storage, expenseService, lg)
	exportService := export.NewService(expenses, lg)

	var health *rest.HealthHandler
	if d.SQL != nil {
		health = rest.NewHealthHandler(d.SQL, redisForHealth(d.Redis))
	}

	base := transport.NewBaseHandler(lg)
	return rest.NewRouter(rest.Handlers{
		Identity:   identity.NewHandler(base, identityService),
		Guard:      membership.NewGuard(base, resolver),
		Profile:    profile.NewHandler(base, profileService),
		Membership: membership.NewHandler(base, membershipService, resolver, profileService),
		Onboarding: onboarding.NewHandler(base, onboardingService),
		Category:   category.NewHandler(base, categoryService),
		Expense:    expense.NewHandler(base, expenseService),
		Receipt:    receipt.NewHandler(base, receiptService),
		Export:     export.NewHandler(base, exportService),
		Health:     health,
	}, rest.RouterOptions{AllowedOrigins: cfg.Server.Origins()}, lg)
}

// redisForHealth keeps a disabled redis out of the health report.
func redisForHealth(rdb *redis.Client) redis.UniversalClient {
	if rdb == nil {
		return nil
	}
	return rdb
}
