package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Role      string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	UpdateVisibility(ctx context.Context, id snowflake.ID, visibility string, updatedAt time.Time) error
	AddMember(ctx context.Context, member OrganizationMember) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
	RoleOf(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error)
	CreateInvites(ctx context.Context, invites []OrganizationInvite) error
	GetInviteByCode(ctx context.Context, code string) (*OrganizationInvite, error)
	UpdateInvite(ctx context.Context, invite OrganizationInvite) error
	SearchByName(ctx context.Context, query string, limit int) ([]SearchItem, error)
}
