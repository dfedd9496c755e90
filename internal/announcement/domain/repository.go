package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, announcement Announcement) error
	GetByID(ctx context.Context, id snowflake.ID) (*Announcement, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Announcement, error)
	ListPage(ctx context.Context, orgID snowflake.ID, before *pagination.Cursor, limit int) ([]Announcement, error)
	Delete(ctx context.Context, id snowflake.ID) error
	SearchByTitle(ctx context.Context, query string, limit int) ([]SearchItem, error)
}
