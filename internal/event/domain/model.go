package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Event struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"index:ix_events_org"`
	Title       string       `gorm:"size:255;not null"`
	StartsAt    time.Time    `gorm:"not null;index:ix_events_starts_at"`
	Location    string       `gorm:"size:255"`
	Description string       `gorm:"type:text"`
	CreatedBy   snowflake.ID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Event) TableName() string {
	return "events"
}
