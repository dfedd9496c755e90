package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type GroupListItem struct {
	Group
	MemberCount int64
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, group Group) error
	GetByID(ctx context.Context, id snowflake.ID) (*Group, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]GroupListItem, error)
	CountMembers(ctx context.Context, groupID snowflake.ID) (int64, error)
	AddMember(ctx context.Context, member GroupMember) error
	RemoveMember(ctx context.Context, groupID snowflake.ID, userID snowflake.ID) error
	ListMembers(ctx context.Context, groupID snowflake.ID) ([]GroupMember, error)
}
