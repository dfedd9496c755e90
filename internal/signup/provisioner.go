package signup

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/signup/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const UserCreatedTopic = "user.created"

// SignupEvent is an outbox row recording that a user finished signup.
type SignupEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"index:ix_signup_events_user"`
	EventType string       `gorm:"size:64;not null"`
	Payload   datatypes.JSONMap
	CreatedAt time.Time
}

func (SignupEvent) TableName() string {
	return "signup_events"
}

type noopProvisioner struct{}

func NewNoopProvisioner() domain.Provisioner {
	return &noopProvisioner{}
}

func (p *noopProvisioner) Provision(ctx context.Context, userID snowflake.ID) error {
	_ = ctx
	_ = userID
	return nil
}

type EventProvisioner struct {
	db            *gorm.DB
	genID         *snowflake.Node
	notifications notificationdomain.Service
}

func NewEventProvisioner(db *gorm.DB, genID *snowflake.Node, notifications notificationdomain.Service) domain.Provisioner {
	return &EventProvisioner{
		db:            db,
		genID:         genID,
		notifications: notifications,
	}
}

func (p *EventProvisioner) Provision(ctx context.Context, userID snowflake.ID) error {
	event := &SignupEvent{
		ID:        p.genID.Generate(),
		UserID:    userID,
		EventType: UserCreatedTopic,
		Payload: datatypes.JSONMap{
			"user_id": userID.String(),
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := p.db.WithContext(ctx).Create(event).Error; err != nil {
		return err
	}

	// Welcome notification is best-effort; signup must not fail on it.
	_, err := p.notifications.Create(ctx, notificationdomain.CreateNotificationRequest{
		UserID: userID,
		Kind:   notificationdomain.KindMembership,
		Title:  "Welcome to Commune",
		Body:   "Set up your organization to get started.",
		Link:   "/onboarding",
	})
	if err != nil {
		zap.L().Warn("failed to create welcome notification", zap.Error(err))
	}
	return nil
}
