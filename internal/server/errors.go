package server

import (
	"errors"
	"net/http"
	"strings"

	announcementdomain "github.com/opencommune/commune/internal/announcement/domain"
	authdomain "github.com/opencommune/commune/internal/auth/domain"
	"github.com/opencommune/commune/internal/authorization"
	eventdomain "github.com/opencommune/commune/internal/event/domain"
	"github.com/gin-gonic/gin"
	groupdomain "github.com/opencommune/commune/internal/group/domain"
	notificationdomain "github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/onboarding"
	organizationdomain "github.com/opencommune/commune/internal/organization/domain"
	signupdomain "github.com/opencommune/commune/internal/signup/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, organizationdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, groupdomain.ErrAlreadyMember),
		errors.Is(err, onboarding.ErrSaveInProgress),
		errors.Is(err, onboarding.ErrAlreadyDone):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, onboarding.ErrOrganizationRequired):
		// The client has to send the user back to the organization step.
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "organization_required",
			Message: "an organization must be created first",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, announcementdomain.ErrDraftUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, onboarding.ErrSaveInProgress):
		return "a save is already in progress"
	case errors.Is(err, onboarding.ErrAlreadyDone):
		return "onboarding is already complete"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, onboarding.ErrMissingInput):
		return true
	case isOrganizationValidationError(err),
		isEventValidationError(err),
		isAnnouncementValidationError(err),
		isGroupValidationError(err),
		isNotificationValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrInviteNotFound),
		errors.Is(err, eventdomain.ErrEventNotFound),
		errors.Is(err, announcementdomain.ErrAnnouncementNotFound),
		errors.Is(err, groupdomain.ErrGroupNotFound),
		errors.Is(err, groupdomain.ErrMemberNotFound),
		errors.Is(err, notificationdomain.ErrNotificationNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isEventValidationError(err error) bool {
	switch err {
	case eventdomain.ErrInvalidTitle,
		eventdomain.ErrInvalidDate,
		eventdomain.ErrInvalidTime,
		eventdomain.ErrInvalidOrg:
		return true
	default:
		return false
	}
}

func isAnnouncementValidationError(err error) bool {
	switch err {
	case announcementdomain.ErrInvalidTitle,
		announcementdomain.ErrInvalidOrg,
		announcementdomain.ErrInvalidPrompt,
		announcementdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

func isGroupValidationError(err error) bool {
	switch err {
	case groupdomain.ErrInvalidName,
		groupdomain.ErrInvalidKind,
		groupdomain.ErrInvalidOrg:
		return true
	default:
		return false
	}
}

func isNotificationValidationError(err error) bool {
	switch err {
	case notificationdomain.ErrInvalidUser,
		notificationdomain.ErrInvalidKind,
		notificationdomain.ErrInvalidTitle:
		return true
	default:
		return false
	}
}

func isOrganizationValidationError(err error) bool {
	switch err {
	case organizationdomain.ErrInvalidName,
		organizationdomain.ErrInvalidType,
		organizationdomain.ErrInvalidUser,
		organizationdomain.ErrInvalidOrganization,
		organizationdomain.ErrInvalidVisibility,
		organizationdomain.ErrNoValidEmails:
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, onboarding.ErrMissingInput):
		return "missing_input"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "missing_input":
		return "step input is required"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog turns a handler error into coarse type and code
// labels for the request log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth", payload.Type
	default:
		return "client", payload.Type
	}
}
