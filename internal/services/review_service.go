package services

import (
	"errors"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

// ReviewService manages the admin-curated screenshot gallery.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Add stores a review photo. Returns false when the same photo was already
// added.
func (s *ReviewService) Add(photoFileID string) (bool, error) {
	err := s.db.Create(&models.Review{PhotoFileID: photoFileID}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// All returns review photos, newest first.
func (s *ReviewService) All() ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Order("created_at desc").Find(&reviews).Error
	return reviews, err
}

// Find returns a review by id, or nil when absent.
func (s *ReviewService) Find(id uint) (*models.Review, error) {
	var review models.Review
	err := s.db.First(&review, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete removes a review. Returns false when no row matched.
func (s *ReviewService) Delete(id uint) (bool, error) {
	tx := s.db.Delete(&models.Review{}, id)
	return tx.RowsAffected > 0, tx.Error
}
