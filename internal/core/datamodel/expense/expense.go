package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Expense struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)"`
	OrganizationID  string          `gorm:"column:organization_id;type:varchar(36);index;not null"`
	UserID          string          `gorm:"column:user_id;type:varchar(36);index;not null"`
	CategoryID      *string         `gorm:"column:category_id;type:varchar(36)"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency        string          `gorm:"column:currency;type:varchar(3);not null"`
	Title           string          `gorm:"column:title;not null"`
	Description     *string         `gorm:"column:description"`
	VendorName      *string         `gorm:"column:vendor_name"`
	ExpenseDate     time.Time       `gorm:"column:expense_date;type:date;not null"`
	Status          string          `gorm:"column:status;index;not null"`
	ReceiptURL      *string         `gorm:"column:receipt_url"`
	SubmittedAt     time.Time       `gorm:"column:submitted_at;not null"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at"`
	ApprovedBy      *string         `gorm:"column:approved_by;type:varchar(36)"`
	RejectedAt      *time.Time      `gorm:"column:rejected_at"`
	RejectedBy      *string         `gorm:"column:rejected_by;type:varchar(36)"`
	RejectionReason *string         `gorm:"column:rejection_reason"`
	ReimbursedAt    *time.Time      `gorm:"column:reimbursed_at"`
	ReimbursedBy    *string         `gorm:"column:reimbursed_by;type:varchar(36)"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// ExportRow is an expense joined with submitter and category names.
type ExportRow struct {
	ID            string          `gorm:"column:id"`
	ExpenseDate   time.Time       `gorm:"column:expense_date"`
	SubmitterName string          `gorm:"column:submitter_name"`
	Email         string          `gorm:"column:email"`
	Title         string          `gorm:"column:title"`
	CategoryName  *string         `gorm:"column:category_name"`
	VendorName    *string         `gorm:"column:vendor_name"`
	Currency      string          `gorm:"column:currency"`
	Amount        decimal.Decimal `gorm:"column:amount"`
	Status        string          `gorm:"column:status"`
	ApprovedAt    *time.Time      `gorm:"column:approved_at"`
	ReimbursedAt  *time.Time      `gorm:"column:reimbursed_at"`
}
