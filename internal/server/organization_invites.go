package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
)

type inviteMembersRequest struct {
	Emails []string `json:"emails"`
	Role   string   `json:"role"`
}

func (s *Server) InviteOrganizationMembers(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req inviteMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.organizationSvc.InviteMembers(c.Request.Context(), userID, c.Param("id"), organizationdomain.InviteMembersRequest{
		Emails: req.Emails,
		Role:   strings.ToUpper(strings.TrimSpace(req.Role)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) AcceptInvite(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.organizationSvc.AcceptInvite(c.Request.Context(), userID, code); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
