package models

import (
	"time"

	"gorm.io/gorm"
)

// InviteGrant is a single-use, time-limited invite link to the course
// channel. Single-use semantics are enforced by Telegram via the member
// limit on the link; locally we only track the window. A new grant replaces
// any prior expired one for the same user.
type InviteGrant struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"index" json:"user_id"`
	// PaymentID references the succeeded Payment row the grant was issued
	// against.
	PaymentID  uint      `gorm:"index" json:"payment_id"`
	InviteLink string    `gorm:"type:varchar(255)" json:"invite_link"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`

	User User `json:"user,omitempty"`
}

// Expired reports whether the grant's window has passed.
func (g InviteGrant) Expired() bool {
	return time.Now().After(g.ExpiresAt)
}
