package membership

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationMembership binds one identity to one organization. user_id is unique.
type OrganizationMembership struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null"`
	OrganizationID string    `gorm:"column:organization_id;type:varchar(36);index;not null"`
	Role           string    `gorm:"column:role;not null"`
	InvitedBy      *string   `gorm:"column:invited_by;type:varchar(36)"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrganizationMembership) TableName() string {
	return "organization_memberships"
}

func (m *OrganizationMembership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MemberRow is a membership joined with the profile display fields.
type MemberRow struct {
	ID             string    `gorm:"column:id"`
	UserID         string    `gorm:"column:user_id"`
	OrganizationID string    `gorm:"column:organization_id"`
	Role           string    `gorm:"column:role"`
	FullName       string    `gorm:"column:full_name"`
	Email          string    `gorm:"column:email"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}
