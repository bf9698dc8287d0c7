package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentCallbackHistory is an audit row for every webhook notification the
// gateway delivers, stored before any processing so duplicates and unknown
// events are still visible.
type PaymentCallbackHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Event            string          `gorm:"type:varchar(100)" json:"event"`
	GatewayPaymentID string          `gorm:"type:varchar(64);index" json:"gateway_payment_id"`
	Metadata         json.RawMessage `gorm:"type:jsonb" json:"metadata"`
}
