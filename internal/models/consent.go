package models

import "time"

// Consent records a user's acceptance of data processing and the offer.
// One row per user, both flags always written together. Absence of a row
// means nothing has been accepted yet.
type Consent struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	DataConsent  bool      `gorm:"not null" json:"data_consent"`
	OfferConsent bool      `gorm:"not null" json:"offer_consent"`
	ConsentedAt  time.Time `gorm:"not null" json:"consented_at"`
}
