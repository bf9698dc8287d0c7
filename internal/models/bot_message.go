package models

import (
	"time"

	"gorm.io/gorm"
)

// BotMessage is an admin-editable text block the bot replies with, looked up
// by title. Slash commands resolve against the title as well.
type BotMessage struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Title string `gorm:"type:varchar(255);uniqueIndex;not null" json:"title"`
	Text  string `gorm:"type:text;not null" json:"text"`
}
