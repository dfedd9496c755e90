package search

import (
	"context"
	"strings"
	"sync"
	"time"

	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	"github.com/opencommune/commune/internal/config"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	"go.uber.org/zap"
)

const (
	KindOrganization = "organization"
	KindEvent        = "event"
	KindAnnouncement = "announcement"
)

const eventSubtitleLayout = "Jan 2, 2006"

// announcementSubtitle labels announcement rows; they have no date or
// type of their own worth surfacing in the palette.
const announcementSubtitle = "Announcement"

const (
	iconOrganization = "building"
	iconEvent        = "calendar"
	iconAnnouncement = "megaphone"
)

// MinQueryLength is the shortest query that triggers a search. Anything
// shorter clears results instead.
const MinQueryLength = 2

type Result struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Icon     string `json:"icon"`
	Path     string `json:"path"`
}

// Searcher fans one query out to every searchable kind in parallel and
// merges the capped results in a fixed kind order. A failing kind
// contributes nothing rather than failing the whole search.
type Searcher struct {
	orgs          organizationdomain.Service
	events        eventdomain.Service
	announcements announcementdomain.Service
	tuning        *config.TuningHolder
}

func NewSearcher(
	orgs organizationdomain.Service,
	events eventdomain.Service,
	announcements announcementdomain.Service,
	tuning *config.TuningHolder,
) *Searcher {
	return &Searcher{
		orgs:          orgs,
		events:        events,
		announcements: announcements,
		tuning:        tuning,
	}
}

func (s *Searcher) Search(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil
	}

	limits := s.tuning.Load().Search

	var (
		wg                sync.WaitGroup
		orgResults        []Result
		eventResults      []Result
		announcementItems []Result
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		items, err := s.orgs.Search(ctx, query, limits.OrgLimit)
		if err != nil {
			zap.L().Warn("organization search failed", zap.Error(err))
			return
		}
		for _, item := range items {
			orgResults = append(orgResults, Result{
				Kind:     KindOrganization,
				ID:       item.ID.String(),
				Title:    item.Name,
				Subtitle: item.Type,
				Icon:     iconOrganization,
				Path:     "/orgs/" + item.ID.String() + "/home",
			})
		}
	}()
	go func() {
		defer wg.Done()
		items, err := s.events.Search(ctx, query, limits.EventLimit)
		if err != nil {
			zap.L().Warn("event search failed", zap.Error(err))
			return
		}
		for _, item := range items {
			eventResults = append(eventResults, Result{
				Kind:     KindEvent,
				ID:       item.ID.String(),
				Title:    item.Title,
				Subtitle: formatEventDate(item.StartsAt),
				Icon:     iconEvent,
				Path:     "/orgs/" + item.OrgID.String() + "/events",
			})
		}
	}()
	go func() {
		defer wg.Done()
		items, err := s.announcements.Search(ctx, query, limits.AnnouncementLimit)
		if err != nil {
			zap.L().Warn("announcement search failed", zap.Error(err))
			return
		}
		for _, item := range items {
			announcementItems = append(announcementItems, Result{
				Kind:     KindAnnouncement,
				ID:       item.ID.String(),
				Title:    item.Title,
				Subtitle: announcementSubtitle,
				Icon:     iconAnnouncement,
				Path:     "/orgs/" + item.OrgID.String() + "/announcements",
			})
		}
	}()
	wg.Wait()

	merged := make([]Result, 0, len(orgResults)+len(eventResults)+len(announcementItems))
	merged = append(merged, orgResults...)
	merged = append(merged, eventResults...)
	merged = append(merged, announcementItems...)
	return merged
}

func formatEventDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(eventSubtitleLayout)
}
