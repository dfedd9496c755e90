package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/opencommune/commune/internal/organization/domain"
	"github.com/opencommune/commune/internal/providers/email"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db     *gorm.DB
	repo   domain.Repository
	genID  *snowflake.Node
	mailer email.Provider
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, mailer email.Provider) domain.Service {
	return &service{
		db:     db,
		repo:   repo,
		genID:  genID,
		mailer: mailer,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	orgType := strings.TrimSpace(req.Type)
	if orgType == "" {
		return nil, domain.ErrInvalidType
	}

	now := time.Now().UTC()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:          orgID,
		Name:        name,
		Slug:        slug.Make(name),
		Type:        orgType,
		Description: strings.TrimSpace(req.Description),
		Visibility:  domain.VisibilityPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		member := domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}

		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	return orgResponse(&org), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	orgID, err := parseOrgID(id)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return orgResponse(org), nil
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

// InviteMembers persists one pending invite per valid address. Blank and
// malformed addresses are dropped silently; zero valid addresses is a local
// validation error and nothing is written.
func (s *service) InviteMembers(ctx context.Context, userID snowflake.ID, orgID string, req domain.InviteMembersRequest) (*domain.InviteMembersResult, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = domain.RoleMember
	}

	now := time.Now().UTC()
	valid := make([]domain.OrganizationInvite, 0, len(req.Emails))
	skipped := make([]string, 0)
	for _, raw := range req.Emails {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if !strings.Contains(addr, "@") {
			skipped = append(skipped, addr)
			continue
		}
		valid = append(valid, domain.OrganizationInvite{
			ID:        s.genID.Generate(),
			OrgID:     id,
			Email:     strings.ToLower(addr),
			Role:      role,
			Code:      ulid.Make().String(),
			Status:    domain.InviteStatusPending,
			InvitedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	// Address validation is local; the store is not touched until at
	// least one invite is worth writing.
	if len(valid) == 0 {
		return nil, domain.ErrNoValidEmails
	}

	if _, err := s.repo.RoleOf(ctx, id, userID); err != nil {
		return nil, err
	}

	if err := s.repo.CreateInvites(ctx, valid); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, id)
	if err == nil {
		s.sendInviteEmails(ctx, org, valid)
	}

	return &domain.InviteMembersResult{
		Created: len(valid),
		Skipped: skipped,
	}, nil
}

func (s *service) AcceptInvite(ctx context.Context, userID snowflake.ID, code string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrInviteNotFound
	}

	invite, err := s.repo.GetInviteByCode(ctx, code)
	if err != nil {
		return err
	}
	if invite.Status != domain.InviteStatusPending {
		return domain.ErrInviteNotFound
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		member := domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     invite.OrgID,
			UserID:    userID,
			Role:      invite.Role,
			CreatedAt: now,
		}
		if err := repo.AddMember(ctx, member); err != nil {
			return err
		}

		invite.Status = domain.InviteStatusAccepted
		invite.UpdatedAt = now
		return repo.UpdateInvite(ctx, *invite)
	})
}

func (s *service) UpdateVisibility(ctx context.Context, userID snowflake.ID, orgID string, visibility string) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	id, err := parseOrgID(orgID)
	if err != nil {
		return err
	}

	switch visibility {
	case domain.VisibilityPublic, domain.VisibilityPrivate:
	default:
		return domain.ErrInvalidVisibility
	}

	role, err := s.repo.RoleOf(ctx, id, userID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return domain.ErrForbidden
	}

	return s.repo.UpdateVisibility(ctx, id, visibility, time.Now().UTC())
}

func (s *service) ListMembers(ctx context.Context, orgID string) ([]domain.MemberResponse, error) {
	id, err := parseOrgID(orgID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, domain.MemberResponse{
			UserID:   m.UserID.String(),
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) RoleOf(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	return s.repo.RoleOf(ctx, orgID, userID)
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	return s.repo.SearchByName(ctx, query, limit)
}

func (s *service) sendInviteEmails(ctx context.Context, org *domain.Organization, invites []domain.OrganizationInvite) {
	if s.mailer == nil {
		return
	}
	for _, invite := range invites {
		err := s.mailer.SendTemplate(ctx, []string{invite.Email}, email.TemplateInviteMember, map[string]any{
			"org_name":    org.Name,
			"invite_code": invite.Code,
		})
		if err != nil {
			zap.L().Warn("failed to send invite email",
				zap.String("org_id", org.ID.String()),
				zap.Error(err),
			)
		}
	}
}

func orgResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:          org.ID.String(),
		Name:        org.Name,
		Slug:        org.Slug,
		Type:        org.Type,
		Description: org.Description,
		Visibility:  org.Visibility,
	}
}

func parseOrgID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrInvalidOrganization
	}
	return id, nil
}
