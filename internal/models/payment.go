package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus is the internal payment status vocabulary. Gateway statuses
// are mapped onto it by the gateway adapter.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusCanceled          PaymentStatus = "canceled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	// PaymentStatusUnknown is the sentinel for gateway statuses outside the
	// mapped vocabulary. Never persisted as a terminal state.
	PaymentStatusUnknown PaymentStatus = "unknown"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is a payment created with the gateway. Status is mutated only by
// reconciliation (poll, webhook or the worker sweep), never by the
// user-facing flow directly.
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID           uint          `gorm:"uniqueIndex:idx_payments_user_gateway" json:"user_id"`
	GatewayPaymentID string        `gorm:"type:varchar(64);uniqueIndex:idx_payments_user_gateway;index" json:"gateway_payment_id"`
	AmountMinor      int64         `gorm:"not null" json:"amount_minor"`
	Currency         string        `gorm:"type:varchar(3);default:'RUB'" json:"currency"`
	Status           PaymentStatus `gorm:"type:varchar(30);index" json:"status"`
	Method           string        `gorm:"type:varchar(100)" json:"method"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
