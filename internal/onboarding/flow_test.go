package onboarding

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	eventrepo "github.com/opencommune/commune/internal/event/repository"
	eventsvc "github.com/opencommune/commune/internal/event/service"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	orgrepo "github.com/opencommune/commune/internal/organization/repository"
	orgsvc "github.com/opencommune/commune/internal/organization/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// wiredServices builds the real organization and event services over an
// in-memory database, the same stack the wizard talks to in production.
// The database is named per test so shared-cache connections from the
// pool all land on the same (and only this test's) data.
func wiredServices(t *testing.T, name string) (*gorm.DB, organizationdomain.Service, eventdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&organizationdomain.OrganizationInvite{},
		&eventdomain.Event{},
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
	return db, orgs, events
}

func TestWizardFullFlowAgainstStore(t *testing.T) {
	db, orgs, events := wiredServices(t, "wizard_full_flow")
	ctx := context.Background()

	w := NewWizard(51, orgs, events)

	state, err := w.Next(ctx, StepInput{Organization: &OrganizationInput{
		Name: "Riverside Food Bank",
		Type: "NONPROFIT",
	}})
	if err != nil {
		t.Fatalf("organization step: %v", err)
	}
	if state.OrgID == "" {
		t.Fatal("organization id missing from state")
	}

	if _, err := w.Next(ctx, StepInput{Event: &EventInput{
		Title: "Spring Canned Food Drive",
		Date:  "2026-03-01",
	}}); err != nil {
		t.Fatalf("event step: %v", err)
	}

	state, err = w.Next(ctx, StepInput{Invites: &InvitesInput{
		Emails: []string{"amy@riverside.test", "not-an-email"},
	}})
	if err != nil {
		t.Fatalf("invites step: %v", err)
	}
	if state.InvitesSent != 1 {
		t.Fatalf("expected 1 invite sent, got %d", state.InvitesSent)
	}

	state, err = w.Next(ctx, StepInput{})
	if err != nil {
		t.Fatalf("publish step: %v", err)
	}
	if !state.Done || !state.Published {
		t.Fatalf("flow not finished: %+v", state)
	}
	if want := "/orgs/" + state.OrgID + "/home"; state.Route != want {
		t.Fatalf("route: got %q, want %q", state.Route, want)
	}

	var storedOrgs []organizationdomain.Organization
	if err := db.Find(&storedOrgs).Error; err != nil {
		t.Fatalf("load organizations: %v", err)
	}
	if len(storedOrgs) != 1 {
		t.Fatalf("expected 1 organization, got %d", len(storedOrgs))
	}
	if storedOrgs[0].Visibility != organizationdomain.VisibilityPublic {
		t.Fatalf("organization not published: %q", storedOrgs[0].Visibility)
	}

	var storedEvents []eventdomain.Event
	if err := db.Find(&storedEvents).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(storedEvents) != 1 {
		t.Fatalf("expected 1 event, got %d", len(storedEvents))
	}
	if storedEvents[0].OrgID != storedOrgs[0].ID {
		t.Fatal("event not attached to the new organization")
	}

	// The malformed address was dropped; only the real one was written.
	var invites []organizationdomain.OrganizationInvite
	if err := db.Find(&invites).Error; err != nil {
		t.Fatalf("load invites: %v", err)
	}
	if len(invites) != 1 {
		t.Fatalf("expected exactly 1 invite, got %d", len(invites))
	}
	if invites[0].Email != "amy@riverside.test" {
		t.Fatalf("unexpected invite email %q", invites[0].Email)
	}
}

func TestWizardSkipEverythingAgainstStore(t *testing.T) {
	db, orgs, events := wiredServices(t, "wizard_skip_flow")

	w := NewWizard(51, orgs, events)
	var (
		state State
		err   error
	)
	for i := 0; i < 4; i++ {
		if state, err = w.Skip(); err != nil {
			t.Fatalf("skip %d: %v", i, err)
		}
	}
	if !state.Done || state.Published {
		t.Fatalf("unexpected final state: %+v", state)
	}
	if state.Route != "/orgs" {
		t.Fatalf("route: got %q", state.Route)
	}

	var count int64
	if err := db.Model(&organizationdomain.Organization{}).Count(&count).Error; err != nil {
		t.Fatalf("count organizations: %v", err)
	}
	if count != 0 {
		t.Fatalf("skipped flow wrote %d organizations", count)
	}
}
