package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/organization/domain"
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

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repository) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidOrganization
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) UpdateVisibility(ctx context.Context, id snowflake.ID, visibility string, updatedAt time.Time) error {
	tx := r.db.WithContext(ctx).Model(&domain.Organization{}).Where("id = ?", id).Updates(map[string]any{
		"visibility": visibility,
		"updated_at": updatedAt,
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInvalidOrganization
	}
	return nil
}

func (r *repository) AddMember(ctx context.Context, member domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, m.role, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.org_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY o.created_at ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	var members []domain.OrganizationMember
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) RoleOf(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT role FROM organization_members WHERE org_id = ? AND user_id = ? LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.Role == "" {
		return "", domain.ErrForbidden
	}
	return row.Role, nil
}

func (r *repository) CreateInvites(ctx context.Context, invites []domain.OrganizationInvite) error {
	if len(invites) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&invites).Error
}

func (r *repository) GetInviteByCode(ctx context.Context, code string) (*domain.OrganizationInvite, error) {
	var invite domain.OrganizationInvite
	err := r.db.WithContext(ctx).First(&invite, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repository) UpdateInvite(ctx context.Context, invite domain.OrganizationInvite) error {
	tx := r.db.WithContext(ctx).Model(&domain.OrganizationInvite{}).
		Where("id = ?", invite.ID).
		Updates(map[string]any{
			"status":     invite.Status,
			"updated_at": invite.UpdatedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

func (r *repository) SearchByName(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	var items []domain.SearchItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, type
		 FROM organizations
		 WHERE name LIKE ?
		 ORDER BY name ASC
		 LIMIT ?`,
		"%"+query+"%",
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
