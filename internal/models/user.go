package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a bot user. A row is created on first interaction and is
// never deleted; the email is filled in later during the purchase flow.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TelegramID int64   `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Name       string  `gorm:"type:varchar(255)" json:"name"`
	Username   string  `gorm:"type:varchar(255)" json:"username"`
	Email      *string `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`

	// Relationships
	Payments     []Payment     `gorm:"foreignKey:UserID" json:"payments,omitempty"`
	InviteGrants []InviteGrant `gorm:"foreignKey:UserID" json:"invite_grants,omitempty"`
}
