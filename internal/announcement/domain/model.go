package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Announcement struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"index:ix_announcements_org"`
	Title     string       `gorm:"size:255;not null"`
	Body      string       `gorm:"type:text"`
	CreatedBy snowflake.ID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Announcement) TableName() string {
	return "announcements"
}
