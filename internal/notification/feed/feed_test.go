package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/live"
)

type fakeStore struct {
	mu          sync.Mutex
	items       []domain.NotificationResponse
	listCalls   int
	markReadErr error
	markAllErr  error
	marked      []string
	markedAll   bool
}

func (s *fakeStore) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.NotificationResponse, error) {
	return nil, errors.New("not used")
}

func (s *fakeStore) ListRecent(ctx context.Context, userID snowflake.ID, limit int) ([]domain.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]domain.NotificationResponse, 0, limit)
	for _, n := range s.items {
		if len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkRead(ctx context.Context, userID snowflake.ID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.marked = append(s.marked, id)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
		}
	}
	return nil
}

func (s *fakeStore) MarkAllRead(ctx context.Context, userID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markAllErr != nil {
		return s.markAllErr
	}
	s.markedAll = true
	for i := range s.items {
		s.items[i].Read = true
	}
	return nil
}

func (s *fakeStore) CountUnread(ctx context.Context, userID snowflake.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unread := 0
	for _, n := range s.items {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *fakeStore) add(n domain.NotificationResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]domain.NotificationResponse{n}, s.items...)
}

func seedStore() *fakeStore {
	return &fakeStore{items: []domain.NotificationResponse{
		{ID: "3", Kind: domain.KindAnnouncement, Title: "New announcement", Link: "/orgs/1/announcements"},
		{ID: "2", Kind: domain.KindEvent, Title: "Upcoming event", Read: true},
		{ID: "1", Kind: domain.KindInvite, Title: "You were invited"},
	}}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestFeedInitialFetch(t *testing.T) {
	store := seedStore()
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	snap := f.Snapshot()
	if len(snap.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(snap.Items))
	}
	if snap.UnreadCount != 2 {
		t.Fatalf("expected 2 unread, got %d", snap.UnreadCount)
	}
	if snap.Items[0].ID != "3" {
		t.Fatalf("expected newest first, got %q", snap.Items[0].ID)
	}
}

func TestFeedUnreadCountsHeldItemsOnly(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 5; i++ {
		store.add(domain.NotificationResponse{ID: snowflake.ID(i + 1).String(), Kind: domain.KindEvent, Title: "Upcoming event"})
	}
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 2})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	// Five unread rows exist, but the badge reflects the two the feed
	// actually holds.
	snap := f.Snapshot()
	if len(snap.Items) != 2 {
		t.Fatalf("expected 2 held items, got %d", len(snap.Items))
	}
	if snap.UnreadCount != 2 {
		t.Fatalf("unread badge must match the held feed, got %d", snap.UnreadCount)
	}
}

func TestFeedRefetchesOnPing(t *testing.T) {
	store := seedStore()
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	store.add(domain.NotificationResponse{ID: "4", Kind: domain.KindMembership, Title: "New member"})
	hub.Publish("7", live.ChangeEvent{Kind: live.ChangeCreated, NotificationID: "4", At: time.Now()})

	waitUntil(t, func() bool {
		snap := f.Snapshot()
		return len(snap.Items) == 4 && snap.Items[0].ID == "4"
	})
	if snap := f.Snapshot(); snap.UnreadCount != 3 {
		t.Fatalf("expected 3 unread after ping, got %d", snap.UnreadCount)
	}
}

func TestFeedMarkAsReadIsOptimistic(t *testing.T) {
	store := seedStore()
	store.markReadErr = errors.New("write failed")
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	// Lenient mode swallows the write failure and keeps the local flip.
	if err := f.MarkAsRead(context.Background(), "1"); err != nil {
		t.Fatalf("lenient mark-as-read surfaced error: %v", err)
	}

	snap := f.Snapshot()
	if snap.UnreadCount != 1 {
		t.Fatalf("expected unread to drop to 1, got %d", snap.UnreadCount)
	}
	for _, item := range snap.Items {
		if item.ID == "1" && !item.Read {
			t.Fatal("item not flipped locally")
		}
	}

	// Marking the same item again must not drive the badge below zero.
	if err := f.MarkAsRead(context.Background(), "1"); err != nil {
		t.Fatalf("repeat mark-as-read: %v", err)
	}
	if snap := f.Snapshot(); snap.UnreadCount != 1 {
		t.Fatalf("repeat mark changed the badge: %d", snap.UnreadCount)
	}
}

func TestFeedStrictModeRollsBackOnWriteFailure(t *testing.T) {
	store := seedStore()
	store.markReadErr = errors.New("write failed")
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10, Strict: true})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	if err := f.MarkAsRead(context.Background(), "1"); err == nil {
		t.Fatal("strict mark-as-read must surface the write failure")
	}

	// The rollback refetch restores server truth.
	snap := f.Snapshot()
	if snap.UnreadCount != 2 {
		t.Fatalf("expected unread restored to 2, got %d", snap.UnreadCount)
	}
}

func TestFeedMarkAllAsRead(t *testing.T) {
	store := seedStore()
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	if err := f.MarkAllAsRead(context.Background()); err != nil {
		t.Fatalf("mark all: %v", err)
	}

	snap := f.Snapshot()
	if snap.UnreadCount != 0 {
		t.Fatalf("expected 0 unread, got %d", snap.UnreadCount)
	}
	for _, item := range snap.Items {
		if !item.Read {
			t.Fatalf("item %s still unread", item.ID)
		}
	}
	if !store.markedAll {
		t.Fatal("store write never happened")
	}
}

func TestFeedClickReturnsLink(t *testing.T) {
	store := seedStore()
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	link, err := f.Click(context.Background(), "3")
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if link != "/orgs/1/announcements" {
		t.Fatalf("unexpected link %q", link)
	}
	if snap := f.Snapshot(); snap.UnreadCount != 1 {
		t.Fatalf("click must mark the item read, unread=%d", snap.UnreadCount)
	}
}

func TestFeedDrainsPingBursts(t *testing.T) {
	store := seedStore()
	hub := live.NewHub()

	f, err := New(context.Background(), store, hub, 7, Options{Limit: 10})
	if err != nil {
		t.Fatalf("new feed: %v", err)
	}
	defer f.Close()

	before := store.calls()
	for i := 0; i < 10; i++ {
		hub.Publish("7", live.ChangeEvent{Kind: live.ChangeCreated, At: time.Now()})
	}
	waitUntil(t, func() bool { return store.calls() > before })
	time.Sleep(50 * time.Millisecond)

	// A burst of pings should coalesce into far fewer refetches than
	// pings. The exact count depends on scheduling; ten is the ceiling.
	if got := store.calls() - before; got > 10 {
		t.Fatalf("refetch storm: %d refetches for 10 pings", got)
	}
}
