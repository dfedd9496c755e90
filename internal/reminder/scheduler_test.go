package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/clock"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubOrgSvc struct {
	organizationdomain.Service
	members []organizationdomain.MemberResponse
}

func (s *stubOrgSvc) ListMembers(ctx context.Context, orgID string) ([]organizationdomain.MemberResponse, error) {
	return s.members, nil
}

type recordingNotificationSvc struct {
	notificationdomain.Service
	mu      sync.Mutex
	created []notificationdomain.CreateNotificationRequest
}

func (s *recordingNotificationSvc) Create(ctx context.Context, req notificationdomain.CreateNotificationRequest) (*notificationdomain.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	return &notificationdomain.NotificationResponse{ID: "1", Kind: req.Kind, Title: req.Title}, nil
}

func (s *recordingNotificationSvc) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func setupSchedulerTest(t *testing.T, members []organizationdomain.MemberResponse) (*Scheduler, *gorm.DB, *clock.FakeClock, *recordingNotificationSvc, *snowflake.Node) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&eventdomain.Event{}, &SentReminder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	notifications := &recordingNotificationSvc{}

	s, err := New(
		conn,
		zap.NewNop(),
		Config{Window: 24 * time.Hour},
		node,
		fakeClock,
		&stubOrgSvc{members: members},
		notifications,
		nil,
	)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s, conn, fakeClock, notifications, node
}

func seedEvent(t *testing.T, conn *gorm.DB, node *snowflake.Node, orgID snowflake.ID, title string, startsAt time.Time) eventdomain.Event {
	t.Helper()
	event := eventdomain.Event{
		ID:       node.Generate(),
		OrgID:    orgID,
		Title:    title,
		StartsAt: startsAt,
		Location: "Main hall",
	}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

func TestSchedulerRemindsOnce(t *testing.T) {
	members := []organizationdomain.MemberResponse{
		{UserID: "42", Role: organizationdomain.RoleOwner},
		{UserID: "77", Role: organizationdomain.RoleMember},
	}
	s, conn, fakeClock, notifications, node := setupSchedulerTest(t, members)

	seedEvent(t, conn, node, 1001, "Cleanup Day", fakeClock.Now().Add(2*time.Hour))

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if got := notifications.count(); got != 2 {
		t.Fatalf("expected one notification per member, got %d", got)
	}
	first := notifications.created[0]
	if first.Kind != notificationdomain.KindEvent {
		t.Fatalf("expected kind %q, got %q", notificationdomain.KindEvent, first.Kind)
	}
	if first.Title != "Upcoming event: Cleanup Day" {
		t.Fatalf("unexpected title %q", first.Title)
	}

	// The second run finds the claim row and fans out nothing.
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := notifications.count(); got != 2 {
		t.Fatalf("event reminded twice: %d notifications", got)
	}

	var claims int64
	conn.Model(&SentReminder{}).Count(&claims)
	if claims != 1 {
		t.Fatalf("expected one claim row, got %d", claims)
	}
}

func TestSchedulerRespectsWindow(t *testing.T) {
	members := []organizationdomain.MemberResponse{{UserID: "42"}}
	s, conn, fakeClock, notifications, node := setupSchedulerTest(t, members)

	// One event already started, one far beyond the 24h window.
	seedEvent(t, conn, node, 1001, "Started", fakeClock.Now().Add(-time.Hour))
	seedEvent(t, conn, node, 1001, "Next Month", fakeClock.Now().Add(30*24*time.Hour))

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := notifications.count(); got != 0 {
		t.Fatalf("expected no reminders outside the window, got %d", got)
	}

	// Advancing the clock pulls the distant event into the window.
	fakeClock.Advance(29*24*time.Hour + 12*time.Hour)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run after advance: %v", err)
	}
	if got := notifications.count(); got != 1 {
		t.Fatalf("expected the distant event to be reminded after advancing, got %d", got)
	}
	if notifications.created[0].Title != "Upcoming event: Next Month" {
		t.Fatalf("wrong event reminded: %q", notifications.created[0].Title)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	fakeClock := clock.NewFakeClock(time.Now())

	_, err := New(nil, zap.NewNop(), Config{}, node, fakeClock, &stubOrgSvc{}, &recordingNotificationSvc{}, nil)
	if err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig without a database, got %v", err)
	}
}
