package services

import (
	"fmt"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

// UserService looks up and maintains bot users keyed by Telegram id.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureUser returns the user row for a Telegram account, creating it on
// first interaction and refreshing the display attributes on later ones.
func (s *UserService) EnsureUser(telegramID int64, name, username string) (*models.User, error) {
	var user models.User
	err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{TelegramID: telegramID, Name: name, Username: username}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", telegramID, err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Name != name || user.Username != username {
		user.Name = name
		user.Username = username
		s.db.Model(&user).Updates(map[string]interface{}{"name": name, "username": username})
	}
	return &user, nil
}

// SetEmail stores a validated email on the user.
func (s *UserService) SetEmail(userID uint, email string) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Update("email", email).Error
}

// FindByTelegramID returns the user row, or gorm.ErrRecordNotFound.
func (s *UserService) FindByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
