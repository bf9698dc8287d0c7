package models

import (
	"time"

	"gorm.io/gorm"
)

// SupportTicketStatus represents the lifecycle of a support ticket
type SupportTicketStatus string

const (
	SupportTicketStatusOpen     SupportTicketStatus = "open"
	SupportTicketStatusAnswered SupportTicketStatus = "answered"
	SupportTicketStatusClosed   SupportTicketStatus = "closed"
)

// SupportTicket is a question sent to the support bot, relayed to admins
// and closed once answered.
type SupportTicket struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TelegramID int64               `gorm:"index" json:"telegram_id"`
	Username   string              `gorm:"type:varchar(255)" json:"username"`
	FullName   string              `gorm:"type:varchar(255)" json:"full_name"`
	Question   string              `gorm:"type:text" json:"question"`
	Status     SupportTicketStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`
}
