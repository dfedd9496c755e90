package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	"github.com/opencommune/commune/internal/config"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
)

func quietBackends() (*stubEventSvc, *stubAnnouncementSvc) {
	events := &stubEventSvc{fn: func(ctx context.Context, query string, limit int) ([]eventdomain.SearchItem, error) {
		return nil, nil
	}}
	announcements := &stubAnnouncementSvc{fn: func(ctx context.Context, query string, limit int) ([]announcementdomain.SearchItem, error) {
		return nil, nil
	}}
	return events, announcements
}

func waitForSnapshot(t *testing.T, updates <-chan Snapshot, match func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return Snapshot{}
		}
	}
}

func TestSynchronizerDebounceCoalescesKeystrokes(t *testing.T) {
	var mu sync.Mutex
	var queries []string
	orgs := &stubOrgSvc{fn: func(ctx context.Context, query string, limit int) ([]organizationdomain.SearchItem, error) {
		mu.Lock()
		queries = append(queries, query)
		mu.Unlock()
		return []organizationdomain.SearchItem{{ID: snowflake.ID(1), Name: "Garden Club", Type: "CLUB"}}, nil
	}}
	events, announcements := quietBackends()

	cfg := config.DefaultTuningConfig()
	cfg.Search.DebounceMS = 40
	searcher := NewSearcher(orgs, events, announcements, config.NewStaticTuningHolder(cfg))

	s := NewSynchronizer(context.Background(), searcher, config.NewStaticTuningHolder(cfg))
	defer s.Close()

	s.SetQuery("ga")
	s.SetQuery("gar")
	s.SetQuery("garden")

	snap := waitForSnapshot(t, s.Updates(), func(snap Snapshot) bool {
		return !snap.Searching && len(snap.Results) > 0
	})
	if snap.Query != "garden" {
		t.Fatalf("expected results for the last keystroke, got %q", snap.Query)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(queries) != 1 || queries[0] != "garden" {
		t.Fatalf("expected one coalesced dispatch for %q, got %v", "garden", queries)
	}
}

func TestSynchronizerDiscardsStaleResponse(t *testing.T) {
	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	orgs := &stubOrgSvc{fn: func(ctx context.Context, query string, limit int) ([]organizationdomain.SearchItem, error) {
		if query == "old query" {
			close(slowStarted)
			<-slowRelease
			return []organizationdomain.SearchItem{{ID: snowflake.ID(9), Name: "Stale", Type: "CLUB"}}, nil
		}
		return []organizationdomain.SearchItem{{ID: snowflake.ID(1), Name: "Fresh", Type: "CLUB"}}, nil
	}}
	events, announcements := quietBackends()

	cfg := config.DefaultTuningConfig()
	cfg.Search.DebounceMS = 1
	tuning := config.NewStaticTuningHolder(cfg)
	searcher := NewSearcher(orgs, events, announcements, tuning)

	s := NewSynchronizer(context.Background(), searcher, tuning)
	defer s.Close()

	var discards atomic.Int64
	s.OnStaleDiscard(func() { discards.Add(1) })

	s.SetQuery("old query")
	<-slowStarted

	s.SetQuery("new query")
	waitForSnapshot(t, s.Updates(), func(snap Snapshot) bool {
		return len(snap.Results) == 1 && snap.Results[0].Title == "Fresh"
	})

	// The slow response lands after the fresh one and must be dropped.
	close(slowRelease)
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Query != "new query" {
		t.Fatalf("query overwritten: %q", snap.Query)
	}
	if len(snap.Results) != 1 || snap.Results[0].Title != "Fresh" {
		t.Fatalf("stale results overwrote fresh ones: %+v", snap.Results)
	}
	if discards.Load() != 1 {
		t.Fatalf("expected one stale discard, got %d", discards.Load())
	}
}

func TestSynchronizerShortQueryClearsInFlightSearch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	orgs := &stubOrgSvc{fn: func(ctx context.Context, query string, limit int) ([]organizationdomain.SearchItem, error) {
		close(started)
		<-release
		return []organizationdomain.SearchItem{{ID: snowflake.ID(9), Name: "Late", Type: "CLUB"}}, nil
	}}
	events, announcements := quietBackends()

	cfg := config.DefaultTuningConfig()
	cfg.Search.DebounceMS = 1
	tuning := config.NewStaticTuningHolder(cfg)
	searcher := NewSearcher(orgs, events, announcements, tuning)

	s := NewSynchronizer(context.Background(), searcher, tuning)
	defer s.Close()

	s.SetQuery("garden")
	<-started

	s.SetQuery("g")
	snap := waitForSnapshot(t, s.Updates(), func(snap Snapshot) bool {
		return snap.Query == "g"
	})
	if snap.Searching || len(snap.Results) != 0 {
		t.Fatalf("short query must clear results immediately: %+v", snap)
	}

	close(release)
	time.Sleep(50 * time.Millisecond)

	snap = s.Snapshot()
	if len(snap.Results) != 0 {
		t.Fatalf("invalidated search still landed: %+v", snap.Results)
	}
}

func TestSynchronizerSnapshotCopiesResults(t *testing.T) {
	orgs := &stubOrgSvc{fn: func(ctx context.Context, query string, limit int) ([]organizationdomain.SearchItem, error) {
		return []organizationdomain.SearchItem{{ID: snowflake.ID(1), Name: "Garden Club", Type: "CLUB"}}, nil
	}}
	events, announcements := quietBackends()

	cfg := config.DefaultTuningConfig()
	cfg.Search.DebounceMS = 1
	tuning := config.NewStaticTuningHolder(cfg)

	s := NewSynchronizer(context.Background(), NewSearcher(orgs, events, announcements, tuning), tuning)
	defer s.Close()

	s.SetQuery("garden")
	waitForSnapshot(t, s.Updates(), func(snap Snapshot) bool { return !snap.Searching })

	a := s.Snapshot()
	a.Results[0].Title = "mutated"

	if b := s.Snapshot(); b.Results[0].Title != "Garden Club" {
		t.Fatal("snapshot must hand out a copy of the results")
	}
}
