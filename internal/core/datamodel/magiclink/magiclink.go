package magiclink

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MagicLink stores only the sha256 of the emailed token.
type MagicLink struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)"`
	Email     string     `gorm:"column:email;index;not null"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (MagicLink) TableName() string {
	return "magic_links"
}

func (m *MagicLink) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
