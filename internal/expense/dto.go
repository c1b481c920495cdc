package expense

import (
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	maxAmount       = decimal.RequireFromString("999999999999.99")
)

// CreateExpenseDTO represents the request payload for submitting an expense.
// ExpenseDate is YYYY-MM-DD and defaults to today.
type CreateExpenseDTO struct {
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description *string         `json:"description,omitempty"`
	VendorName  *string         `json:"vendor_name,omitempty"`
	CategoryID  *string         `json:"category_id,omitempty"`
	ExpenseDate string          `json:"expense_date,omitempty"`
	ReceiptKey  *string         `json:"receipt_key,omitempty"`
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (d *CreateExpenseDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	d.Description = trimOptional(d.Description)
	d.VendorName = trimOptional(d.VendorName)
	d.CategoryID = trimOptional(d.CategoryID)
	d.ReceiptKey = trimOptional(d.ReceiptKey)
	d.ExpenseDate = strings.TrimSpace(d.ExpenseDate)
}

// Date parses ExpenseDate, defaulting to the UTC calendar day of now.
func (d CreateExpenseDTO) Date(now time.Time) (time.Time, *internal.AppError) {
	if d.ExpenseDate == "" {
		y, m, day := now.UTC().Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, d.ExpenseDate)
	if err != nil {
		return time.Time{}, internal.NewValidationFieldError("expense_date", "expense_date must be formatted as YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	return t, nil
}

// latestExpenseDate is the furthest calendar day any UTC offset (up to +14h)
// has reached at now.
func latestExpenseDate(now time.Time) time.Time {
	y, m, day := now.UTC().Add(14 * time.Hour).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Validate checks the normalized dto. now is the submission time; the
// expense date may not be later than the current day in any timezone.
func (d CreateExpenseDTO) Validate(now time.Time) *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("amount", d.Amount).
		PositiveDecimal(internal.ErrCodeInvalidAmount).
		MaxDecimalPlaces(2, internal.ErrCodeInvalidAmount).
		MaxDecimal(maxAmount, internal.ErrCodeInvalidAmount)
	v.Field("currency", d.Currency).Matches(currencyPattern, "currency must be a 3-letter ISO code", internal.ErrCodeInvalidCurrency)
	v.Field("description", d.Description).MaxLength(1000)
	v.Field("vendor_name", d.VendorName).MaxLength(200)
	v.Field("category_id", d.CategoryID).Tag("uuid", "category_id must be a valid id", internal.ErrCodeInvalidCategory)
	v.Field("receipt_key", d.ReceiptKey).MaxLength(512)
	if d.ExpenseDate != "" {
		if date, err := d.Date(now); err != nil {
			v.Field("expense_date", nil).Custom(func(interface{}) *internal.AppError { return err })
		} else {
			v.Field("expense_date", date).NotAfter(latestExpenseDate(now))
		}
	}
	return v.Validate()
}

// RejectExpenseDTO carries the optional reason shown to the submitter.
type RejectExpenseDTO struct {
	Reason *string `json:"reason,omitempty"`
}

func (d *RejectExpenseDTO) Normalize() {
	d.Reason = trimOptional(d.Reason)
}

func (d RejectExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("reason", d.Reason).MaxLength(1000)
	return v.Validate()
}

type ListQuery struct {
	Status Status
	Limit  int
	Offset int
}

func (q ListQuery) Validate() *internal.AppError {
	if q.Status != "" && !q.Status.Valid() {
		return internal.NewValidationFieldError("status", "status must be one of: pending, approved, rejected, reimbursed", internal.ErrCodeInvalidExpenseStatus)
	}
	return nil
}

type ExpenseListResponse struct {
	Expenses []*Expense `json:"expenses"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ExportFilter selects the rows of one organization in one status. From and
// To bound expense_date inclusively when set.
type ExportFilter struct {
	OrganizationID string
	Status         Status
	From           *time.Time
	To             *time.Time
}
