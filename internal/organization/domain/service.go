package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

const (
	InviteStatusPending  = "PENDING"
	InviteStatusAccepted = "ACCEPTED"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*OrganizationResponse, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	InviteMembers(ctx context.Context, userID snowflake.ID, orgID string, req InviteMembersRequest) (*InviteMembersResult, error)
	AcceptInvite(ctx context.Context, userID snowflake.ID, code string) error
	UpdateVisibility(ctx context.Context, userID snowflake.ID, orgID string, visibility string) error
	ListMembers(ctx context.Context, orgID string) ([]MemberResponse, error)
	RoleOf(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error)
	Search(ctx context.Context, query string, limit int) ([]SearchItem, error)
}

type CreateOrganizationRequest struct {
	Name        string
	Type        string
	Description string
}

type InviteMembersRequest struct {
	Emails []string
	Role   string
}

// InviteMembersResult reports how many addresses survived filtering.
type InviteMembersResult struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped,omitempty"`
}

type OrganizationResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// SearchItem is the capped directory-search projection.
type SearchItem struct {
	ID   snowflake.ID
	Name string
	Type string
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidVisibility   = errors.New("invalid_visibility")
	ErrNoValidEmails       = errors.New("no_valid_emails")
	ErrInviteNotFound      = errors.New("invite_not_found")
	ErrForbidden           = errors.New("forbidden")
)
