package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a screenshot review shown to prospective buyers. PhotoFileID is
// the Telegram file id of the uploaded photo.
type Review struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PhotoFileID string `gorm:"type:varchar(255);uniqueIndex;not null" json:"photo_file_id"`
}
