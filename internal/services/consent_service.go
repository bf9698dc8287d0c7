package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"land_course_bot/internal/models"
)

// ConsentService persists per-user acceptance of data processing and the
// offer. Both flags are always written together with a fresh timestamp.
type ConsentService struct {
	db *gorm.DB
}

func NewConsentService(db *gorm.DB) *ConsentService {
	return &ConsentService{db: db}
}

// RecordConsent upserts the user's consent row, overwriting both flags.
func (s *ConsentService) RecordConsent(userID uint, dataConsent, offerConsent bool) error {
	consent := models.Consent{
		UserID:       userID,
		DataConsent:  dataConsent,
		OfferConsent: offerConsent,
		ConsentedAt:  time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data_consent", "offer_consent", "consented_at"}),
	}).Create(&consent).Error
}

// GetConsent returns the user's flags. A missing row is the legitimate
// default state (false, false), not an error.
func (s *ConsentService) GetConsent(userID uint) (bool, bool, error) {
	var consent models.Consent
	err := s.db.First(&consent, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return consent.DataConsent, consent.OfferConsent, nil
}
