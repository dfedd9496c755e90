package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	KindCommittee = "COMMITTEE"
	KindTeam      = "TEAM"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateGroupRequest) (*GroupResponse, error)
	GetByID(ctx context.Context, id string) (*GroupResponse, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]GroupResponse, error)
	Join(ctx context.Context, userID snowflake.ID, groupID string) error
	Leave(ctx context.Context, userID snowflake.ID, groupID string) error
	ListMembers(ctx context.Context, groupID string) ([]GroupMemberResponse, error)
}

type CreateGroupRequest struct {
	OrgID       snowflake.ID
	Name        string
	Kind        string
	Description string
}

type GroupResponse struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	MemberCount int64  `json:"member_count"`
}

type GroupMemberResponse struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidKind    = errors.New("invalid_kind")
	ErrInvalidOrg     = errors.New("invalid_organization")
	ErrGroupNotFound  = errors.New("group_not_found")
	ErrAlreadyMember  = errors.New("already_member")
	ErrMemberNotFound = errors.New("member_not_found")
)
