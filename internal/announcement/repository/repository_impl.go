package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/announcement/domain"
	"github.com/opencommune/commune/pkg/db/pagination"
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

func (r *repository) Create(ctx context.Context, announcement domain.Announcement) error {
	return r.db.WithContext(ctx).Create(&announcement).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Announcement, error) {
	var announcement domain.Announcement
	err := r.db.WithContext(ctx).First(&announcement, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAnnouncementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &announcement, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Announcement, error) {
	var announcements []domain.Announcement
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&announcements).Error
	if err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *repository) ListPage(ctx context.Context, orgID snowflake.ID, before *pagination.Cursor, limit int) ([]domain.Announcement, error) {
	q := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if before != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, before.CreatedAt)
		if err != nil {
			return nil, err
		}
		// Ties on created_at break on id so the page boundary is stable.
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, before.ID)
	}

	var announcements []domain.Announcement
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&announcements).Error
	if err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Announcement{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrAnnouncementNotFound
	}
	return nil
}

func (r *repository) SearchByTitle(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	var items []domain.SearchItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, title
		 FROM announcements
		 WHERE title LIKE ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		"%"+query+"%",
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
