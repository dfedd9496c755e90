package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification Notification) error
	ListRecent(ctx context.Context, userID snowflake.ID, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID snowflake.ID) (int64, error)
	MarkRead(ctx context.Context, userID snowflake.ID, id snowflake.ID, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID snowflake.ID, readAt time.Time) error
}
