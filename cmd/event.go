package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/mailer"
	"github.com/frahmantamala/expenseflow/internal/notification"
	"github.com/frahmantamala/expenseflow/internal/profile"
	"github.com/frahmantamala/expenseflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample domain events through the notification pipeline to check mail delivery.`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a sample event",
	Long:      `Publish a sample event to the event bus. Subscribed notifiers render and send its mail with the configured sender.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: sampleEventTypes(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSampleEvent(cmd.Context(), args[0])
	},
}

var eventRecipient string

// recipientLookup answers every profile lookup with the --to address.
type recipientLookup string

func (r recipientLookup) GetProfile(_ context.Context, userID string) (*profile.Profile, error) {
	return &profile.Profile{ID: userID, Email: string(r), FullName: "Sample Recipient"}, nil
}

var sampleEvents = map[string]func() events.Event{
	events.ExpenseApproved: func() events.Event {
		return events.NewExpenseEvent(events.ExpenseApproved, uuid.NewString(), "sample-org", "sample-user", "sample-hr", "Airport taxi", "42.50", "USD", "")
	},
	events.ExpenseRejected: func() events.Event {
		return events.NewExpenseEvent(events.ExpenseRejected, uuid.NewString(), "sample-org", "sample-user", "sample-hr", "Client dinner", "180.00", "USD", "Missing receipt")
	},
	events.ExpenseReimbursed: func() events.Event {
		return events.NewExpenseEvent(events.ExpenseReimbursed, uuid.NewString(), "sample-org", "sample-user", "sample-accounts", "Airport taxi", "42.50", "USD", "")
	},
	events.MembershipRoleChanged: func() events.Event {
		return events.NewMembershipRoleChangedEvent(uuid.NewString(), "sample-org", "sample-user", "unassigned", "employee", "sample-admin")
	},
}

func sampleEventTypes() []string {
	types := []string{events.MagicLinkRequested}
	for t := range sampleEvents {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func publishSampleEvent(ctx context.Context, eventType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.Init(logger.Options{Env: cfg.App.Env, Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	var event events.Event
	if eventType == events.MagicLinkRequested {
		event = events.NewMagicLinkEvent(eventRecipient, cfg.App.BaseURL+"/auth?magic_token=sample", cfg.Security.MagicLinkDuration.String())
	} else if build, ok := sampleEvents[eventType]; ok {
		event = build()
	} else {
		return fmt.Errorf("unknown event type %q, want one of: %s", eventType, strings.Join(sampleEventTypes(), ", "))
	}

	var sender mailer.Sender = mailer.LogSender{Logger: lg}
	if cfg.Mail.Enabled {
		sender = mailer.NewSMTPSender(cfg.Mail)
	}
	templates, err := mailer.LoadTemplates()
	if err != nil {
		return err
	}
	dispatcher := mailer.NewDispatcher(sender, mailer.Config{Workers: 1, QueueSize: 1}, lg)

	bus := events.NewEventBus(lg)
	notification.NewNotifier(recipientLookup(eventRecipient), dispatcher, templates, cfg.App.BaseURL, lg).Register(bus)

	lg.Info("publishing sample event", "event_type", event.EventType(), "event_id", event.EventID(), "to", eventRecipient)
	if err := bus.PublishSync(ctx, event); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		return err
	}
	lg.Info("sample event delivered")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventRecipient, "to", "", "address that receives the mail")
	publishEventCmd.MarkFlagRequired("to")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
