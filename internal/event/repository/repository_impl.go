package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/event/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event domain.Event) error {
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Event, error) {
	var event domain.Event
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Event, error) {
	var events []domain.Event
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("starts_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) Update(ctx context.Context, event domain.Event) error {
	tx := r.db.WithContext(ctx).Model(&domain.Event{}).
		Where("id = ?", event.ID).
		Updates(map[string]any{
			"title":       event.Title,
			"starts_at":   event.StartsAt,
			"location":    event.Location,
			"description": event.Description,
			"updated_at":  event.UpdatedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Event{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *repository) SearchByTitle(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	var items []domain.SearchItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, title, starts_at
		 FROM events
		 WHERE title LIKE ?
		 ORDER BY starts_at ASC
		 LIMIT ?`,
		"%"+query+"%",
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
