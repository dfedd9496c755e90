package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DateLayout is the wire format for event dates; TimeLayout for the
// optional time-of-day component.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateEventRequest) (*EventResponse, error)
	GetByID(ctx context.Context, id string) (*EventResponse, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]EventResponse, error)
	Update(ctx context.Context, userID snowflake.ID, id string, req UpdateEventRequest) (*EventResponse, error)
	Delete(ctx context.Context, userID snowflake.ID, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchItem, error)
}

type CreateEventRequest struct {
	OrgID       snowflake.ID
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
}

type UpdateEventRequest struct {
	Title       *string
	Date        *string
	Time        *string
	Location    *string
	Description *string
}

type EventResponse struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"starts_at"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// SearchItem carries a pre-formatted date subtitle for directory search.
type SearchItem struct {
	ID       snowflake.ID
	OrgID    snowflake.ID
	Title    string
	StartsAt time.Time
}

var (
	ErrInvalidTitle  = errors.New("invalid_title")
	ErrInvalidDate   = errors.New("invalid_date")
	ErrInvalidTime   = errors.New("invalid_time")
	ErrInvalidOrg    = errors.New("invalid_organization")
	ErrEventNotFound = errors.New("event_not_found")
)
