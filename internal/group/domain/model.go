package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Group struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"index:ix_groups_org"`
	Name        string       `gorm:"size:255;not null"`
	Kind        string       `gorm:"size:32;not null;default:'COMMITTEE'"`
	Description string       `gorm:"type:text"`
	CreatedBy   snowflake.ID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Group) TableName() string {
	return "groups"
}

type GroupMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	GroupID   snowflake.ID `gorm:"uniqueIndex:ux_group_user"`
	UserID    snowflake.ID `gorm:"uniqueIndex:ux_group_user"`
	CreatedAt time.Time
}

func (GroupMember) TableName() string {
	return "group_members"
}
