package category

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	OrganizationID string    `gorm:"column:organization_id;type:varchar(36);uniqueIndex:idx_category_org_name;not null"`
	Name           string    `gorm:"column:name;uniqueIndex:idx_category_org_name;not null"`
	Description    string    `gorm:"column:description"`
	Color          string    `gorm:"column:color"`
	Icon           string    `gorm:"column:icon"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExpenseCategory) TableName() string {
	return "expense_categories"
}

func (c *ExpenseCategory) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
