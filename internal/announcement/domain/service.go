package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateAnnouncementRequest) (*AnnouncementResponse, error)
	GetByID(ctx context.Context, id string) (*AnnouncementResponse, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]AnnouncementResponse, error)
	History(ctx context.Context, orgID snowflake.ID, page pagination.Pagination) ([]AnnouncementResponse, *pagination.PageInfo, error)
	Delete(ctx context.Context, userID snowflake.ID, id string) error
	Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error)
	Search(ctx context.Context, query string, limit int) ([]SearchItem, error)
}

type CreateAnnouncementRequest struct {
	OrgID snowflake.ID
	Title string
	Body  string
}

// DraftRequest asks the content generator for a starting draft.
type DraftRequest struct {
	OrgID  snowflake.ID
	Prompt string
	Tone   string
}

type DraftResponse struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type AnnouncementResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type SearchItem struct {
	ID    snowflake.ID
	OrgID snowflake.ID
	Title string
}

var (
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidOrg           = errors.New("invalid_organization")
	ErrInvalidPrompt        = errors.New("invalid_prompt")
	ErrAnnouncementNotFound = errors.New("announcement_not_found")
	ErrInvalidPageToken     = errors.New("invalid_page_token")
	ErrDraftUnavailable     = errors.New("draft_unavailable")
)
