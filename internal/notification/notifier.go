// Package notification turns domain events into queued emails.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/mailer"
	"github.com/frahmantamala/expenseflow/internal/profile"
)

type ProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
}

type Queue interface {
	Enqueue(msg mailer.Message) bool
}

type Renderer interface {
	Render(name string, data interface{}) (string, error)
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type Notifier struct {
	profiles  ProfileLookup
	queue     Queue
	templates Renderer
	baseURL   string
	logger    *slog.Logger
}

func NewNotifier(profiles ProfileLookup, queue Queue, templates Renderer, baseURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		profiles:  profiles,
		queue:     queue,
		templates: templates,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// Register subscribes the notifier to every event that produces mail.
func (n *Notifier) Register(bus Subscriber) {
	bus.Subscribe(events.ExpenseApproved, n.onExpenseDecision)
	bus.Subscribe(events.ExpenseRejected, n.onExpenseDecision)
	bus.Subscribe(events.ExpenseReimbursed, n.onExpenseDecision)
	bus.Subscribe(events.MembershipRoleChanged, n.onRoleChanged)
	bus.Subscribe(events.MagicLinkRequested, n.onMagicLink)
}

var decisionWords = map[string]string{
	events.ExpenseApproved:   "approved",
	events.ExpenseRejected:   "rejected",
	events.ExpenseReimbursed: "reimbursed",
}

func (n *Notifier) onExpenseDecision(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	p, err := n.profiles.GetProfile(ctx, e.SubmitterID)
	if err != nil {
		return fmt.Errorf("load submitter %s: %w", e.SubmitterID, err)
	}

	status := decisionWords[e.EventType()]
	body, err := n.templates.Render(mailer.TemplateExpenseDecision, map[string]string{
		"Title":    e.Title,
		"Amount":   e.Amount,
		"Currency": e.Currency,
		"Status":   status,
		"Reason":   e.Reason,
		"Link":     n.baseURL + "/expenses/" + e.ExpenseID,
	})
	if err != nil {
		return err
	}

	n.enqueue(mailer.Message{
		To:      p.Email,
		Subject: fmt.Sprintf("Expense %s: %s", status, e.Title),
		HTML:    body,
	}, "expense_id", e.ExpenseID)
	return nil
}

func (n *Notifier) onRoleChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.MembershipEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	p, err := n.profiles.GetProfile(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("load member %s: %w", e.UserID, err)
	}

	body, err := n.templates.Render(mailer.TemplateRoleChanged, map[string]string{
		"Role":     e.Role,
		"Previous": e.PreviousRole,
		"Link":     n.baseURL + "/dashboard",
	})
	if err != nil {
		return err
	}

	n.enqueue(mailer.Message{
		To:      p.Email,
		Subject: "Your ExpenseFlow role is now " + e.Role,
		HTML:    body,
	}, "membership_id", e.MembershipID)
	return nil
}

func (n *Notifier) onMagicLink(_ context.Context, event events.Event) error {
	e, ok := event.(*events.MagicLinkEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	body, err := n.templates.Render(mailer.TemplateMagicLink, map[string]string{
		"Link":      e.Link,
		"ExpiresIn": e.ExpiresIn,
	})
	if err != nil {
		return err
	}

	n.enqueue(mailer.Message{
		To:      e.Email,
		Subject: "Your ExpenseFlow sign-in link",
		HTML:    body,
	}, "event_id", e.EventID())
	return nil
}

func (n *Notifier) enqueue(msg mailer.Message, key, value string) {
	if !n.queue.Enqueue(msg) {
		n.logger.Warn("notification not queued", key, value, "subject", msg.Subject)
		return
	}
	n.logger.Debug("notification queued", key, value, "subject", msg.Subject)
}
