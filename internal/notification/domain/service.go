package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Notification kinds produced by the rest of the app.
const (
	KindInvite       = "invite"
	KindEvent        = "event"
	KindAnnouncement = "announcement"
	KindMembership   = "membership"
)

type Service interface {
	Create(ctx context.Context, req CreateNotificationRequest) (*NotificationResponse, error)
	ListRecent(ctx context.Context, userID snowflake.ID, limit int) ([]NotificationResponse, error)
	MarkRead(ctx context.Context, userID snowflake.ID, id string) error
	MarkAllRead(ctx context.Context, userID snowflake.ID) error
	CountUnread(ctx context.Context, userID snowflake.ID) (int, error)
}

type CreateNotificationRequest struct {
	UserID snowflake.ID
	OrgID  snowflake.ID
	Kind   string
	Title  string
	Body   string
	Link   string
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidKind          = errors.New("invalid_kind")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrNotificationNotFound = errors.New("notification_not_found")
)
