package search

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	announcementrepo "github.com/opencommune/commune/internal/announcement/repository"
	announcementsvc "github.com/opencommune/commune/internal/announcement/service"
	"github.com/opencommune/commune/internal/config"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	eventrepo "github.com/opencommune/commune/internal/event/repository"
	eventsvc "github.com/opencommune/commune/internal/event/service"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	orgrepo "github.com/opencommune/commune/internal/organization/repository"
	orgsvc "github.com/opencommune/commune/internal/organization/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestSearchAcrossStoredKinds drives the searcher through the real
// services and repositories: seeded rows of every kind, per-kind caps
// from tuning, and the fixed organization-event-announcement merge
// order coming back out.
func TestSearchAcrossStoredKinds(t *testing.T) {
	// A named shared-cache database, so the parallel per-kind queries all
	// hit the seeded data no matter which pooled connection they draw.
	db, err := gorm.Open(sqlite.Open("file:search_kinds?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&organizationdomain.OrganizationInvite{},
		&eventdomain.Event{},
		&announcementdomain.Announcement{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	orgs := orgsvc.NewService(db, orgrepo.NewRepository(db), node, nil)
	events := eventsvc.NewService(db, eventrepo.NewRepository(db), node)
	announcements := announcementsvc.NewService(db, announcementrepo.NewRepository(db), node, nil)

	ctx := context.Background()
	const userID = snowflake.ID(61)

	// Two matching organizations; the cap below keeps only the first by
	// name order.
	first, err := orgs.Create(ctx, userID, organizationdomain.CreateOrganizationRequest{Name: "Port City Shelter", Type: "NONPROFIT"})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	if _, err := orgs.Create(ctx, userID, organizationdomain.CreateOrganizationRequest{Name: "Portland Hiking Club", Type: "CLUB"}); err != nil {
		t.Fatalf("create organization: %v", err)
	}
	orgID, err := snowflake.ParseString(first.ID)
	if err != nil {
		t.Fatalf("parse org id: %v", err)
	}

	// Three matching events; the cap keeps the two that start soonest.
	for _, ev := range []struct{ title, date string }{
		{"Potluck Dinner", "2026-04-10"},
		{"Poetry Night", "2026-03-05"},
		{"Polar Plunge", "2026-06-20"},
	} {
		if _, err := events.Create(ctx, userID, eventdomain.CreateEventRequest{OrgID: orgID, Title: ev.title, Date: ev.date}); err != nil {
			t.Fatalf("create event %q: %v", ev.title, err)
		}
	}

	for _, title := range []string{"Potluck signup open", "Pool hours posted"} {
		if _, err := announcements.Create(ctx, userID, announcementdomain.CreateAnnouncementRequest{OrgID: orgID, Title: title}); err != nil {
			t.Fatalf("create announcement %q: %v", title, err)
		}
	}

	cfg := config.DefaultTuningConfig()
	cfg.Search.OrgLimit = 1
	cfg.Search.EventLimit = 2
	cfg.Search.AnnouncementLimit = 1

	s := NewSearcher(orgs, events, announcements, config.NewStaticTuningHolder(cfg))
	results := s.Search(ctx, "po")

	if len(results) != 4 {
		t.Fatalf("expected 4 capped results, got %d: %+v", len(results), results)
	}
	wantKinds := []string{KindOrganization, KindEvent, KindEvent, KindAnnouncement}
	for i, kind := range wantKinds {
		if results[i].Kind != kind {
			t.Fatalf("result %d: expected kind %s, got %s", i, kind, results[i].Kind)
		}
	}

	if results[0].Title != "Port City Shelter" {
		t.Errorf("organization cap or order off: got %q", results[0].Title)
	}
	if results[0].Path != "/orgs/"+first.ID+"/home" {
		t.Errorf("organization path: got %q", results[0].Path)
	}
	if results[1].Title != "Poetry Night" || results[2].Title != "Potluck Dinner" {
		t.Errorf("events not soonest-first: %q, %q", results[1].Title, results[2].Title)
	}
	if results[3].Subtitle != "Announcement" {
		t.Errorf("announcement subtitle: got %q", results[3].Subtitle)
	}
	if results[3].Path != "/orgs/"+first.ID+"/announcements" {
		t.Errorf("announcement path: got %q", results[3].Path)
	}
}
