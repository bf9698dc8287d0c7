package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"land_course_bot/internal/models"
)

const messageCacheTTL = 10 * time.Minute

// BotMessageService serves the admin-editable reply texts, with a redis
// cache in front of the table when one is configured.
type BotMessageService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewBotMessageService(db *gorm.DB, cache *RedisCache) *BotMessageService {
	return &BotMessageService{db: db, cache: cache}
}

// GetByTitle returns the text for a title, or fallback when no row exists.
func (s *BotMessageService) GetByTitle(ctx context.Context, title, fallback string) string {
	fetch := func() (string, error) {
		var msg models.BotMessage
		if err := s.db.Where("title = ?", title).First(&msg).Error; err != nil {
			return "", err
		}
		return msg.Text, nil
	}

	var text string
	var err error
	if s.cache != nil {
		text, err = GetOrSet(s.cache, ctx, "botmsg:"+title, messageCacheTTL, fetch)
	} else {
		text, err = fetch()
	}
	if err != nil || text == "" {
		return fallback
	}
	return text
}

// List returns all messages ordered by title, for the admin edit menu.
func (s *BotMessageService) List() ([]models.BotMessage, error) {
	var messages []models.BotMessage
	err := s.db.Order("title asc").Find(&messages).Error
	return messages, err
}

// Find returns a message by id.
func (s *BotMessageService) Find(id uint) (*models.BotMessage, error) {
	var msg models.BotMessage
	if err := s.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateText replaces a message's text and drops the cached copy.
func (s *BotMessageService) UpdateText(ctx context.Context, id uint, text string) error {
	msg, err := s.Find(id)
	if err != nil {
		return err
	}
	if err := s.db.Model(msg).Update("text", text).Error; err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "botmsg:"+msg.Title)
	}
	return nil
}

// EnsureDefaults seeds the message table on first start so every menu has a
// text even before any admin edits.
func (s *BotMessageService) EnsureDefaults(defaults map[string]string) error {
	for title, text := range defaults {
		var existing models.BotMessage
		err := s.db.Where("title = ?", title).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.Create(&models.BotMessage{Title: title, Text: text}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
