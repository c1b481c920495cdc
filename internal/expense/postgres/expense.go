package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expenseflow/internal"
	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	"github.com/frahmantamala/expenseflow/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements expense.RepositoryAPI using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, orgID, id string) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func page(q *gorm.DB, status expense.Status, limit, offset int) *gorm.DB {
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q.Order("submitted_at DESC").Order("id DESC")
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, orgID, userID string, status expense.Status, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	q := r.db.WithContext(ctx).Where("organization_id = ? AND user_id = ?", orgID, userID)
	err := page(q, status, limit, offset).Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) ListByOrganization(ctx context.Context, orgID string, status expense.Status, limit, offset int) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	q := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	err := page(q, status, limit, offset).Find(&expenses).Error
	return expenses, err
}

// UpdateStatus puts organization and current status in the predicate so a
// concurrent decision on the same expense updates nothing.
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, orgID, id string, from expense.Status, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND organization_id = ? AND status = ?", id, orgID, string(from)).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrInvalidExpenseStatus
	}
	return nil
}

// ListForExport joins submitter and category names for the accounts workbook.
func (r *ExpenseRepository) ListForExport(ctx context.Context, f expense.ExportFilter) ([]*expenseDatamodel.ExportRow, error) {
	var rows []*expenseDatamodel.ExportRow
	q := r.db.WithContext(ctx).
		Table("expenses").
		Select("expenses.id, expenses.expense_date, " +
			"COALESCE(profiles.full_name, '') AS submitter_name, COALESCE(profiles.email, '') AS email, " +
			"expenses.title, expense_categories.name AS category_name, expenses.vendor_name, " +
			"expenses.currency, expenses.amount, expenses.status, expenses.approved_at, expenses.reimbursed_at").
		Joins("LEFT JOIN profiles ON profiles.id = expenses.user_id").
		Joins("LEFT JOIN expense_categories ON expense_categories.id = expenses.category_id").
		Where("expenses.organization_id = ? AND expenses.status = ?", f.OrganizationID, string(f.Status))
	if f.From != nil {
		q = q.Where("expenses.expense_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("expenses.expense_date <= ?", *f.To)
	}
	err := q.Order("expenses.currency ASC").Order("expenses.expense_date ASC").Scan(&rows).Error
	return rows, err
}
