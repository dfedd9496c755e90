package server

import (
	"net/http"
	"time"

	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	"github.com/gin-gonic/gin"
	groupdomain "github.com/opencommune/commune/internal/group/domain"
	"github.com/opencommune/commune/internal/orgcontext"
)

const (
	dashboardUpcomingEvents      = 3
	dashboardLatestAnnouncements = 3
)

type HomeDashboardResponse struct {
	Organization  organizationSummary                       `json:"organization"`
	Upcoming      []eventdomain.EventResponse               `json:"upcoming_events"`
	Announcements []announcementdomain.AnnouncementResponse `json:"announcements"`
	Groups        []groupdomain.GroupResponse               `json:"groups"`
	UnreadCount   int                                       `json:"unread_count"`
}

type organizationSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	Members    int    `json:"members"`
}

func (s *Server) GetHomeDashboard(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	ctx := c.Request.Context()

	org, err := s.organizationSvc.GetByID(ctx, orgID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	members, err := s.organizationSvc.ListMembers(ctx, orgID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Only events that have not started yet, soonest first.
	events, err := s.eventSvc.ListByOrg(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	now := time.Now()
	upcoming := make([]eventdomain.EventResponse, 0, dashboardUpcomingEvents)
	for _, e := range events {
		if e.StartsAt.Before(now) {
			continue
		}
		upcoming = append(upcoming, e)
		if len(upcoming) == dashboardUpcomingEvents {
			break
		}
	}

	announcements, err := s.announcementSvc.ListByOrg(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(announcements) > dashboardLatestAnnouncements {
		announcements = announcements[:dashboardLatestAnnouncements]
	}

	groups, err := s.groupSvc.ListByOrg(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	unread, err := s.notificationSvc.CountUnread(ctx, userID)
	if err != nil {
		// The dashboard is still useful without the badge.
		unread = 0
	}

	c.JSON(http.StatusOK, HomeDashboardResponse{
		Organization: organizationSummary{
			ID:         org.ID,
			Name:       org.Name,
			Visibility: org.Visibility,
			Members:    len(members),
		},
		Upcoming:      upcoming,
		Announcements: announcements,
		Groups:        groups,
		UnreadCount:   unread,
	})
}
