package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/group/domain"
	"github.com/opencommune/commune/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, group domain.Group) error {
	return r.db.WithContext(ctx).Create(&group).Error
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*domain.Group, error) {
	var group domain.Group
	err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.GroupListItem, error) {
	var items []domain.GroupListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT g.*, COUNT(m.id) AS member_count
		 FROM groups g
		 LEFT JOIN group_members m ON m.group_id = g.id
		 WHERE g.org_id = ?
		 GROUP BY g.id
		 ORDER BY g.name ASC`,
		orgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountMembers(ctx context.Context, groupID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

func (r *repository) AddMember(ctx context.Context, member domain.GroupMember) error {
	err := r.db.WithContext(ctx).Create(&member).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrAlreadyMember
	}
	return err
}

func (r *repository) RemoveMember(ctx context.Context, groupID snowflake.ID, userID snowflake.ID) error {
	tx := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&domain.GroupMember{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repository) ListMembers(ctx context.Context, groupID snowflake.ID) ([]domain.GroupMember, error) {
	var members []domain.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
