package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusReimbursed Status = "reimbursed"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusReimbursed},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusReimbursed:
		return true
	}
	return false
}

// CanTransition reports whether an expense in s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

type Expense struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	UserID          string          `json:"user_id"`
	CategoryID      *string         `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Title           string          `json:"title"`
	Description     *string         `json:"description,omitempty"`
	VendorName      *string         `json:"vendor_name,omitempty"`
	ExpenseDate     string          `json:"expense_date"`
	Status          Status          `json:"status"`
	ReceiptKey      *string         `json:"receipt_key,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy      *string         `json:"approved_by,omitempty"`
	RejectedAt      *time.Time      `json:"rejected_at,omitempty"`
	RejectedBy      *string         `json:"rejected_by,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	ReimbursedAt    *time.Time      `json:"reimbursed_at,omitempty"`
	ReimbursedBy    *string         `json:"reimbursed_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (e *Expense) OwnedBy(userID string) bool {
	return e.UserID == userID
}

// NewExpense builds a pending expense from a normalized, validated dto.
func NewExpense(orgID, userID string, dto CreateExpenseDTO, expenseDate, now time.Time) *Expense {
	return &Expense{
		OrganizationID: orgID,
		UserID:         userID,
		CategoryID:     dto.CategoryID,
		Amount:         dto.Amount.Round(2),
		Currency:       dto.Currency,
		Title:          dto.Title,
		Description:    dto.Description,
		VendorName:     dto.VendorName,
		ExpenseDate:    expenseDate.Format(dateLayout),
		Status:         StatusPending,
		ReceiptKey:     dto.ReceiptKey,
		SubmittedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	date, _ := time.Parse(dateLayout, e.ExpenseDate)
	return &expenseDatamodel.Expense{
		ID:              e.ID,
		OrganizationID:  e.OrganizationID,
		UserID:          e.UserID,
		CategoryID:      e.CategoryID,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Title:           e.Title,
		Description:     e.Description,
		VendorName:      e.VendorName,
		ExpenseDate:     date,
		Status:          string(e.Status),
		ReceiptURL:      e.ReceiptKey,
		SubmittedAt:     e.SubmittedAt,
		ApprovedAt:      e.ApprovedAt,
		ApprovedBy:      e.ApprovedBy,
		RejectedAt:      e.RejectedAt,
		RejectedBy:      e.RejectedBy,
		RejectionReason: e.RejectionReason,
		ReimbursedAt:    e.ReimbursedAt,
		ReimbursedBy:    e.ReimbursedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:              e.ID,
		OrganizationID:  e.OrganizationID,
		UserID:          e.UserID,
		CategoryID:      e.CategoryID,
		Amount:          e.Amount,
		Currency:        e.Currency,
		Title:           e.Title,
		Description:     e.Description,
		VendorName:      e.VendorName,
		ExpenseDate:     e.ExpenseDate.Format(dateLayout),
		Status:          Status(e.Status),
		ReceiptKey:      e.ReceiptURL,
		SubmittedAt:     e.SubmittedAt,
		ApprovedAt:      e.ApprovedAt,
		ApprovedBy:      e.ApprovedBy,
		RejectedAt:      e.RejectedAt,
		RejectedBy:      e.RejectedBy,
		RejectionReason: e.RejectionReason,
		ReimbursedAt:    e.ReimbursedAt,
		ReimbursedBy:    e.ReimbursedBy,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
