package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Notification struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"index:ix_notifications_user"`
	OrgID     snowflake.ID
	Kind      string `gorm:"size:64;not null"`
	Title     string `gorm:"size:255;not null"`
	Body      string `gorm:"type:text"`
	Link      string `gorm:"size:512"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"index:ix_notifications_created"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
