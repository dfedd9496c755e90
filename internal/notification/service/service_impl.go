package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/live"
	"gorm.io/gorm"
)

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	genID     *snowflake.Node
	publisher live.Publisher
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, publisher live.Publisher) domain.Service {
	return &service{
		db:        db,
		repo:      repo,
		genID:     genID,
		publisher: publisher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.NotificationResponse, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		return nil, domain.ErrInvalidKind
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	now := time.Now().UTC()
	notification := domain.Notification{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		OrgID:     req.OrgID,
		Kind:      kind,
		Title:     title,
		Body:      strings.TrimSpace(req.Body),
		Link:      strings.TrimSpace(req.Link),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.publish(req.UserID, live.ChangeEvent{
		Kind:           live.ChangeCreated,
		NotificationID: notification.ID.String(),
		At:             now,
	})

	return notificationResponse(&notification), nil
}

// ListRecent returns the newest notifications. Unread accounting is the
// caller's concern, counted over whatever slice it holds.
func (s *service) ListRecent(ctx context.Context, userID snowflake.ID, limit int) ([]domain.NotificationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if limit <= 0 {
		limit = 10
	}

	notifications, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		resp = append(resp, *notificationResponse(&notifications[i]))
	}
	return resp, nil
}

func (s *service) MarkRead(ctx context.Context, userID snowflake.ID, id string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	notificationID, err := parseNotificationID(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkRead(ctx, userID, notificationID, now); err != nil {
		return err
	}

	s.publish(userID, live.ChangeEvent{
		Kind:           live.ChangeRead,
		NotificationID: notificationID.String(),
		At:             now,
	})
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}

	now := time.Now().UTC()
	if err := s.repo.MarkAllRead(ctx, userID, now); err != nil {
		return err
	}

	s.publish(userID, live.ChangeEvent{
		Kind: live.ChangeReadAll,
		At:   now,
	})
	return nil
}

func (s *service) CountUnread(ctx context.Context, userID snowflake.ID) (int, error) {
	if userID == 0 {
		return 0, domain.ErrInvalidUser
	}
	count, err := s.repo.CountUnread(ctx, userID)
	return int(count), err
}

func (s *service) publish(userID snowflake.ID, event live.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID.String(), event)
}

func notificationResponse(n *domain.Notification) *domain.NotificationResponse {
	return &domain.NotificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Read:      n.IsRead(),
		CreatedAt: n.CreatedAt,
	}
}

func parseNotificationID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrNotificationNotFound
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrNotificationNotFound
	}
	return id, nil
}
