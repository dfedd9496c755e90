package server

import (
	"net/http"
	"strings"

	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	"github.com/gin-gonic/gin"
	"github.com/opencommune/commune/internal/orgcontext"
	"github.com/opencommune/commune/pkg/db/pagination"
)

type createAnnouncementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type draftAnnouncementRequest struct {
	Prompt string `json:"prompt"`
	Tone   string `json:"tone"`
}

func (s *Server) CreateAnnouncement(c *gin.Context) {
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

	var req createAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.announcementSvc.Create(c.Request.Context(), userID, announcementdomain.CreateAnnouncementRequest{
		OrgID: orgID,
		Title: strings.TrimSpace(req.Title),
		Body:  req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListAnnouncements(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, info, err := s.announcementSvc.History(c.Request.Context(), orgID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": info})
}

func (s *Server) GetAnnouncement(c *gin.Context) {
	resp, err := s.announcementSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteAnnouncement(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.announcementSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DraftAnnouncement asks the content generator for a starting draft.
// The draft is returned to the editor, never persisted.
func (s *Server) DraftAnnouncement(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req draftAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	draft, err := s.announcementSvc.Draft(c.Request.Context(), announcementdomain.DraftRequest{
		OrgID:  orgID,
		Prompt: strings.TrimSpace(req.Prompt),
		Tone:   strings.TrimSpace(req.Tone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}
