package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/opencommune/commune/internal/signup/domain"
)

type SignupRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type signupResponse struct {
	UserID string `json:"user_id"`
	// The wizard at /onboarding picks up from here.
	Next string `json:"next"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupsvc.Signup(c.Request.Context(), signupdomain.Request{
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.RawToken != "" {
		s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	}

	c.JSON(http.StatusOK, signupResponse{
		UserID: result.UserID,
		Next:   "/onboarding",
	})
}
