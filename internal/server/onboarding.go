package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opencommune/commune/internal/onboarding"
)

type onboardingNextRequest struct {
	Organization *struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"organization"`
	Event *struct {
		Title       string `json:"title"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		Location    string `json:"location"`
		Description string `json:"description"`
	} `json:"event"`
	Invites *struct {
		Emails []string `json:"emails"`
		Role   string   `json:"role"`
	} `json:"invites"`
}

func (s *Server) GetOnboardingState(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, s.wizards.Get(userID).State())
}

func (s *Server) OnboardingNext(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req onboardingNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input := onboarding.StepInput{}
	if req.Organization != nil {
		input.Organization = &onboarding.OrganizationInput{
			Name:        req.Organization.Name,
			Type:        req.Organization.Type,
			Description: req.Organization.Description,
		}
	}
	if req.Event != nil {
		input.Event = &onboarding.EventInput{
			Title:       req.Event.Title,
			Date:        req.Event.Date,
			Time:        req.Event.Time,
			Location:    req.Event.Location,
			Description: req.Event.Description,
		}
	}
	if req.Invites != nil {
		input.Invites = &onboarding.InvitesInput{
			Emails: req.Invites.Emails,
			Role:   req.Invites.Role,
		}
	}

	wizard := s.wizards.Get(userID)
	committed := wizard.State().Step
	state, err := wizard.Next(c.Request.Context(), input)
	s.metrics.RecordWizardCommit(stepName(committed), commitOutcome(err))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (s *Server) OnboardingSkip(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	state, err := s.wizards.Get(userID).Skip()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (s *Server) OnboardingBack(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	state, err := s.wizards.Get(userID).Back()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (s *Server) OnboardingReset(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	s.wizards.Discard(userID)
	c.Status(http.StatusNoContent)
}

func stepName(step int) string {
	switch step {
	case onboarding.StepOrganization:
		return "organization"
	case onboarding.StepEvent:
		return "event"
	case onboarding.StepInvites:
		return "invites"
	case onboarding.StepPublish:
		return "publish"
	case onboarding.StepDone:
		return "done"
	default:
		return "unknown"
	}
}

func commitOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
