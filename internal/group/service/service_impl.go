package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/group/domain"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		db:    db,
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateGroupRequest) (*domain.GroupResponse, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = domain.KindCommittee
	}
	switch kind {
	case domain.KindCommittee, domain.KindTeam:
	default:
		return nil, domain.ErrInvalidKind
	}

	now := time.Now().UTC()
	group := domain.Group{
		ID:          s.genID.Generate(),
		OrgID:       req.OrgID,
		Name:        name,
		Kind:        kind,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The creator joins their own group up front.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, group); err != nil {
			return err
		}
		return repo.AddMember(ctx, domain.GroupMember{
			ID:        s.genID.Generate(),
			GroupID:   group.ID,
			UserID:    userID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	return groupResponse(&group, 1), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.GroupResponse, error) {
	groupID, err := parseGroupID(id)
	if err != nil {
		return nil, err
	}

	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return groupResponse(group, count), nil
}

func (s *service) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.GroupResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	items, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.GroupResponse, 0, len(items))
	for i := range items {
		resp = append(resp, *groupResponse(&items[i].Group, items[i].MemberCount))
	}
	return resp, nil
}

func (s *service) Join(ctx context.Context, userID snowflake.ID, groupID string) error {
	id, err := parseGroupID(groupID)
	if err != nil {
		return err
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	return s.repo.AddMember(ctx, domain.GroupMember{
		ID:        s.genID.Generate(),
		GroupID:   id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *service) Leave(ctx context.Context, userID snowflake.ID, groupID string) error {
	id, err := parseGroupID(groupID)
	if err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, id, userID)
}

func (s *service) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMemberResponse, error) {
	id, err := parseGroupID(groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.GroupMemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, domain.GroupMemberResponse{
			UserID:   m.UserID.String(),
			JoinedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func groupResponse(group *domain.Group, memberCount int64) *domain.GroupResponse {
	return &domain.GroupResponse{
		ID:          group.ID.String(),
		OrgID:       group.OrgID.String(),
		Name:        group.Name,
		Kind:        group.Kind,
		Description: group.Description,
		MemberCount: memberCount,
	}
}

func parseGroupID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrGroupNotFound
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrGroupNotFound
	}
	return id, nil
}
