package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/clock"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"github.com/opencommune/commune/internal/providers/email"
	"github.com/opencommune/commune/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("reminder scheduler misconfigured")

// SentReminder records that an event's reminder fanout already ran. The
// unique index is what makes the job safe to re-run.
type SentReminder struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	EventID   snowflake.ID `gorm:"column:event_id;not null;uniqueIndex:ux_reminder_event"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (SentReminder) TableName() string { return "event_reminders" }

type Config struct {
	Interval time.Duration
	Window   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	return c
}

// Scheduler periodically reminds organization members about events
// starting soon. Each event is reminded about at most once.
type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	orgs          organizationdomain.Service
	notifications notificationdomain.Service
	mailer        email.Provider

	stop chan struct{}
	done chan struct{}
}

func New(
	conn *gorm.DB,
	log *zap.Logger,
	cfg Config,
	genID *snowflake.Node,
	clk clock.Clock,
	orgs organizationdomain.Service,
	notifications notificationdomain.Service,
	mailer email.Provider,
) (*Scheduler, error) {
	if conn == nil || log == nil || genID == nil || clk == nil || orgs == nil || notifications == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            conn,
		log:           log.Named("reminder"),
		cfg:           cfg.withDefaults(),
		genID:         genID,
		clock:         clk,
		orgs:          orgs,
		notifications: notifications,
		mailer:        mailer,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() error {
	go s.loop()
	return nil
}

func (s *Scheduler) Stop() error {
	close(s.stop)
	<-s.done
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("reminder run failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce scans for events inside the reminder window and fans out to
// the members of each event's organization.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	until := now.Add(s.cfg.Window)

	var events []eventdomain.Event
	err := s.db.WithContext(ctx).
		Raw(`SELECT e.* FROM events e
			LEFT JOIN event_reminders r ON r.event_id = e.id
			WHERE e.starts_at > ? AND e.starts_at <= ? AND r.id IS NULL
			ORDER BY e.starts_at ASC`, now, until).
		Scan(&events).Error
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := s.remind(ctx, event); err != nil {
			s.log.Warn("event reminder failed",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Scheduler) remind(ctx context.Context, event eventdomain.Event) error {
	// Claim the event first; a concurrent run loses on the unique index
	// and skips it.
	claim := SentReminder{ID: s.genID.Generate(), EventID: event.ID}
	if err := s.db.WithContext(ctx).Create(&claim).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}

	members, err := s.orgs.ListMembers(ctx, event.OrgID.String())
	if err != nil {
		return err
	}

	for _, member := range members {
		userID, err := snowflake.ParseString(member.UserID)
		if err != nil {
			continue
		}
		if _, err := s.notifications.Create(ctx, notificationdomain.CreateNotificationRequest{
			UserID: userID,
			OrgID:  event.OrgID,
			Kind:   notificationdomain.KindEvent,
			Title:  "Upcoming event: " + event.Title,
			Body:   event.Location,
			Link:   "/orgs/" + event.OrgID.String() + "/events",
		}); err != nil {
			s.log.Warn("reminder notification failed",
				zap.String("user_id", member.UserID),
				zap.Error(err),
			)
		}
	}

	s.sendEmails(ctx, event)
	return nil
}

// sendEmails is best effort; members without mail still get the in-app
// notification.
func (s *Scheduler) sendEmails(ctx context.Context, event eventdomain.Event) {
	if s.mailer == nil {
		return
	}

	var addresses []string
	err := s.db.WithContext(ctx).
		Raw(`SELECT u.email FROM users u
			JOIN organization_members m ON m.user_id = u.id
			WHERE m.org_id = ?`, event.OrgID).
		Scan(&addresses).Error
	if err != nil {
		s.log.Warn("reminder email lookup failed", zap.Error(err))
		return
	}

	if len(addresses) == 0 {
		return
	}
	if err := s.mailer.SendTemplate(ctx, addresses, email.TemplateEventReminder, map[string]any{
		"event_title": event.Title,
		"starts_at":   event.StartsAt.Format("Jan 2, 2006 15:04 MST"),
		"location":    event.Location,
	}); err != nil {
		s.log.Warn("reminder email failed", zap.Error(err))
	}
}
