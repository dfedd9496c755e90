package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event Event) error
	GetByID(ctx context.Context, id snowflake.ID) (*Event, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Event, error)
	Update(ctx context.Context, event Event) error
	Delete(ctx context.Context, id snowflake.ID) error
	SearchByTitle(ctx context.Context, query string, limit int) ([]SearchItem, error)
}
