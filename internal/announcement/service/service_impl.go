package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/announcement/domain"
	"github.com/opencommune/commune/internal/providers/aicontent"
	"github.com/opencommune/commune/pkg/db/pagination"
	"gorm.io/gorm"
)

type service struct {
	db     *gorm.DB
	repo   domain.Repository
	genID  *snowflake.Node
	drafts aicontent.Generator
}

func NewService(db *gorm.DB, repo domain.Repository, genID *snowflake.Node, drafts aicontent.Generator) domain.Service {
	return &service{
		db:     db,
		repo:   repo,
		genID:  genID,
		drafts: drafts,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateAnnouncementRequest) (*domain.AnnouncementResponse, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	now := time.Now().UTC()
	announcement := domain.Announcement{
		ID:        s.genID.Generate(),
		OrgID:     req.OrgID,
		Title:     title,
		Body:      strings.TrimSpace(req.Body),
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, err
	}

	return announcementResponse(&announcement), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.AnnouncementResponse, error) {
	announcementID, err := parseAnnouncementID(id)
	if err != nil {
		return nil, err
	}

	announcement, err := s.repo.GetByID(ctx, announcementID)
	if err != nil {
		return nil, err
	}

	return announcementResponse(announcement), nil
}

func (s *service) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.AnnouncementResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	announcements, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.AnnouncementResponse, 0, len(announcements))
	for i := range announcements {
		resp = append(resp, *announcementResponse(&announcements[i]))
	}
	return resp, nil
}

// History pages through an org's announcements newest first. The cursor
// encodes the last row of the previous page.
func (s *service) History(ctx context.Context, orgID snowflake.ID, page pagination.Pagination) ([]domain.AnnouncementResponse, *pagination.PageInfo, error) {
	if orgID == 0 {
		return nil, nil, domain.ErrInvalidOrg
	}

	size := page.PageSize
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var cursor *pagination.Cursor
	if page.PageToken != "" {
		decoded, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	announcements, err := s.repo.ListPage(ctx, orgID, cursor, size+1)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]*domain.Announcement, len(announcements))
	for i := range announcements {
		rows[i] = &announcements[i]
	}
	info := pagination.BuildCursorPageInfo(rows, int32(size), func(a *domain.Announcement) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        a.ID.String(),
			CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(announcements) > size {
		announcements = announcements[:size]
	}
	resp := make([]domain.AnnouncementResponse, 0, len(announcements))
	for i := range announcements {
		resp = append(resp, *announcementResponse(&announcements[i]))
	}
	return resp, info, nil
}

func (s *service) Delete(ctx context.Context, userID snowflake.ID, id string) error {
	announcementID, err := parseAnnouncementID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, announcementID)
}

// Draft proxies the prompt to the content generator. The generator is a
// best-effort dependency; when it is not configured callers get a typed
// error rather than an empty draft.
func (s *service) Draft(ctx context.Context, req domain.DraftRequest) (*domain.DraftResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if s.drafts == nil {
		return nil, domain.ErrDraftUnavailable
	}

	out, err := s.drafts.Generate(ctx, aicontent.GenerateRequest{
		Prompt: prompt,
		Tone:   strings.TrimSpace(req.Tone),
	})
	if err != nil {
		return nil, domain.ErrDraftUnavailable
	}

	return &domain.DraftResponse{
		Title: out.Title,
		Body:  out.Body,
	}, nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	return s.repo.SearchByTitle(ctx, query, limit)
}

func announcementResponse(a *domain.Announcement) *domain.AnnouncementResponse {
	return &domain.AnnouncementResponse{
		ID:        a.ID.String(),
		OrgID:     a.OrgID.String(),
		Title:     a.Title,
		Body:      a.Body,
		CreatedAt: a.CreatedAt,
	}
}

func parseAnnouncementID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrAnnouncementNotFound
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrAnnouncementNotFound
	}
	return id, nil
}
