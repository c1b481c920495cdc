package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/category"
	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	"github.com/frahmantamala/expenseflow/internal/core/events"
	"github.com/frahmantamala/expenseflow/internal/membership"
)

// RepositoryAPI is scoped by organization on every read and write.
type RepositoryAPI interface {
	Create(ctx context.Context, expense *expenseDatamodel.Expense) error
	GetByID(ctx context.Context, orgID, id string) (*expenseDatamodel.Expense, error)
	ListByUser(ctx context.Context, orgID, userID string, status Status, limit, offset int) ([]*expenseDatamodel.Expense, error)
	ListByOrganization(ctx context.Context, orgID string, status Status, limit, offset int) ([]*expenseDatamodel.Expense, error)
	// UpdateStatus applies fields only while the expense is still in from.
	// It returns ErrInvalidExpenseStatus when no row matched.
	UpdateStatus(ctx context.Context, orgID, id string, from Status, fields map[string]interface{}) error
}

type CategoryLookup interface {
	GetActive(ctx context.Context, orgID, id string) (*category.Category, error)
}

// ReceiptKeys reports whether a storage key was issued for the organization.
type ReceiptKeys interface {
	OwnsKey(orgID, key string) bool
}

type Service struct {
	repo       RepositoryAPI
	categories CategoryLookup
	receipts   ReceiptKeys
	publisher  events.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo RepositoryAPI, categories CategoryLookup, receipts ReceiptKeys, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		categories: categories,
		receipts:   receipts,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces time.Now; tests use it to pin submission and decision times.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit stores a new pending expense for the caller. There is no duplicate
// submission guard.
func (s *Service) Submit(ctx context.Context, res membership.Resolution, dto CreateExpenseDTO) (*Expense, error) {
	if denial := membership.Deny(res, membership.SubmitRoles...); denial != nil {
		return nil, denial
	}

	dto.Normalize()
	now := s.now().UTC()
	if err := dto.Validate(now); err != nil {
		s.logger.Debug("expense validation failed", "user_id", res.UserID, "error", err)
		return nil, err
	}

	date, dateErr := dto.Date(now)
	if dateErr != nil {
		return nil, dateErr
	}

	orgID := res.OrganizationID()
	if dto.CategoryID != nil {
		if _, err := s.categories.GetActive(ctx, orgID, *dto.CategoryID); err != nil {
			if errors.Is(err, internal.ErrCategoryNotFound) {
				return nil, internal.NewValidationFieldError("category_id", "category does not exist or is inactive", internal.ErrCodeInvalidCategory)
			}
			return nil, err
		}
	}
	if dto.ReceiptKey != nil && (s.receipts == nil || !s.receipts.OwnsKey(orgID, *dto.ReceiptKey)) {
		return nil, internal.NewValidationFieldError("receipt_key", "receipt was not uploaded for this organization", internal.ErrCodeInvalidReceipt)
	}

	exp := NewExpense(orgID, res.UserID, dto, date, now)
	row := ToDataModel(exp)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", res.UserID)
		return nil, internal.NewInternalError("Failed to create expense", err)
	}
	exp = FromDataModel(row)

	s.logger.Info("expense submitted",
		"expense_id", exp.ID,
		"organization_id", orgID,
		"user_id", res.UserID,
		"amount", exp.Amount.StringFixed(2),
		"currency", exp.Currency)

	s.publish(ctx, events.ExpenseSubmitted, exp, res.UserID, "")
	return exp, nil
}

// ListOwn returns the caller's expenses, newest first.
func (s *Service) ListOwn(ctx context.Context, res membership.Resolution, query ListQuery) ([]*Expense, error) {
	if denial := membership.Deny(res); denial != nil {
		return nil, denial
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByUser(ctx, res.OrganizationID(), res.UserID, query.Status, query.Limit, query.Offset)
	if err != nil {
		s.logger.Error("failed to get user expenses", "error", err, "user_id", res.UserID)
		return nil, internal.NewInternalError("Failed to load expenses", err)
	}
	return FromDataModelSlice(rows), nil
}

// ListOrganization returns every expense of the caller's organization for
// hr, accounts and admin.
func (s *Service) ListOrganization(ctx context.Context, res membership.Resolution, query ListQuery) ([]*Expense, error) {
	if denial := membership.Deny(res, membership.ExpenseReaders...); denial != nil {
		return nil, denial
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByOrganization(ctx, res.OrganizationID(), query.Status, query.Limit, query.Offset)
	if err != nil {
		s.logger.Error("failed to get organization expenses", "error", err, "organization_id", res.OrganizationID())
		return nil, internal.NewInternalError("Failed to load expenses", err)
	}
	return FromDataModelSlice(rows), nil
}

// PendingQueue is the approval screen's list: pending expenses, newest first.
func (s *Service) PendingQueue(ctx context.Context, res membership.Resolution, limit, offset int) ([]*Expense, error) {
	if denial := membership.Deny(res, membership.ApproverRoles...); denial != nil {
		return nil, denial
	}

	rows, err := s.repo.ListByOrganization(ctx, res.OrganizationID(), StatusPending, limit, offset)
	if err != nil {
		s.logger.Error("failed to get pending expenses", "error", err, "organization_id", res.OrganizationID())
		return nil, internal.NewInternalError("Failed to load approval queue", err)
	}
	return FromDataModelSlice(rows), nil
}

// Get returns an expense to its owner or to hr, accounts and admin of the
// same organization. Expenses of other organizations do not exist here.
func (s *Service) Get(ctx context.Context, res membership.Resolution, id string) (*Expense, error) {
	if denial := membership.Deny(res); denial != nil {
		return nil, denial
	}

	exp, err := s.load(ctx, res.OrganizationID(), id)
	if err != nil {
		return nil, err
	}

	if !exp.OwnedBy(res.UserID) && !res.Role.CanReadOrgExpenses() {
		s.logger.Warn("unauthorized access to expense", "expense_id", id, "user_id", res.UserID, "owner_id", exp.UserID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return exp, nil
}

// ReceiptKey returns the storage key of the expense's receipt after the
// same access check as Get.
func (s *Service) ReceiptKey(ctx context.Context, res membership.Resolution, id string) (string, error) {
	exp, err := s.Get(ctx, res, id)
	if err != nil {
		return "", err
	}
	if exp.ReceiptKey == nil {
		return "", internal.ErrReceiptNotFound
	}
	return *exp.ReceiptKey, nil
}

func (s *Service) Approve(ctx context.Context, res membership.Resolution, id string) (*Expense, error) {
	now := s.now().UTC()
	return s.decide(ctx, res, id, decision{
		roles:     membership.ApproverRoles,
		to:        StatusApproved,
		eventType: events.ExpenseApproved,
		fields: map[string]interface{}{
			"approved_at": now,
			"approved_by": res.UserID,
		},
	})
}

// Reject records the decision with an optional reason.
func (s *Service) Reject(ctx context.Context, res membership.Resolution, id string, dto RejectExpenseDTO) (*Expense, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reason := ""
	if dto.Reason != nil {
		reason = *dto.Reason
	}
	return s.decide(ctx, res, id, decision{
		roles:     membership.ApproverRoles,
		to:        StatusRejected,
		eventType: events.ExpenseRejected,
		reason:    reason,
		fields: map[string]interface{}{
			"rejected_at":      now,
			"rejected_by":      res.UserID,
			"rejection_reason": dto.Reason,
		},
	})
}

// Reimburse marks an approved expense as paid out by accounts.
func (s *Service) Reimburse(ctx context.Context, res membership.Resolution, id string) (*Expense, error) {
	now := s.now().UTC()
	return s.decide(ctx, res, id, decision{
		roles:     membership.AccountsRoles,
		to:        StatusReimbursed,
		eventType: events.ExpenseReimbursed,
		fields: map[string]interface{}{
			"reimbursed_at": now,
			"reimbursed_by": res.UserID,
		},
	})
}

type decision struct {
	roles     []membership.Role
	to        Status
	eventType string
	reason    string
	fields    map[string]interface{}
}

func (s *Service) decide(ctx context.Context, res membership.Resolution, id string, d decision) (*Expense, error) {
	if denial := membership.Deny(res, d.roles...); denial != nil {
		return nil, denial
	}

	orgID := res.OrganizationID()
	exp, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if !exp.Status.CanTransition(d.to) {
		s.logger.Warn("cannot change expense in current status",
			"expense_id", id,
			"current_status", exp.Status,
			"target_status", d.to)
		return nil, internal.ErrInvalidExpenseStatus
	}

	from := exp.Status
	d.fields["status"] = string(d.to)
	if err := s.repo.UpdateStatus(ctx, orgID, id, from, d.fields); err != nil {
		if errors.Is(err, internal.ErrInvalidExpenseStatus) {
			return nil, internal.ErrInvalidExpenseStatus
		}
		s.logger.Error("failed to update expense status", "error", err, "expense_id", id, "target_status", d.to)
		return nil, internal.NewInternalError("Failed to update expense", err)
	}

	updated, err := s.load(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense status changed",
		"expense_id", id,
		"organization_id", orgID,
		"from", from,
		"to", d.to,
		"actor_id", res.UserID)

	s.publish(ctx, d.eventType, updated, res.UserID, d.reason)
	return updated, nil
}

func (s *Service) load(ctx context.Context, orgID, id string) (*Expense, error) {
	row, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, internal.ErrExpenseNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		return nil, internal.NewInternalError("Failed to load expense", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) publish(ctx context.Context, eventType string, exp *Expense, actorID, reason string) {
	event := events.NewExpenseEvent(eventType, exp.ID, exp.OrganizationID, exp.UserID, actorID,
		exp.Title, exp.Amount.StringFixed(2), exp.Currency, reason)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish expense event", "event_type", eventType, "expense_id", exp.ID, "error", err)
	}
}
