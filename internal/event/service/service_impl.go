package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/event/domain"
	"gorm.io/gorm"
)

// defaultEventHour applies when a date arrives without a time-of-day.
// Most community gatherings are evening events, so new ones land at 18:00.
const defaultEventHour = 18

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

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateEventRequest) (*domain.EventResponse, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	startsAt, err := parseStartsAt(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event := domain.Event{
		ID:          s.genID.Generate(),
		OrgID:       req.OrgID,
		Title:       title,
		StartsAt:    startsAt,
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	return eventResponse(&event), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.EventResponse, error) {
	eventID, err := parseEventID(id)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return eventResponse(event), nil
}

func (s *service) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.EventResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrg
	}

	events, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, *eventResponse(&events[i]))
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, userID snowflake.ID, id string, req domain.UpdateEventRequest) (*domain.EventResponse, error) {
	eventID, err := parseEventID(id)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		event.Title = title
	}
	if req.Date != nil {
		timeStr := event.StartsAt.Format(domain.TimeLayout)
		if req.Time != nil {
			timeStr = *req.Time
		}
		startsAt, err := parseStartsAt(*req.Date, timeStr)
		if err != nil {
			return nil, err
		}
		event.StartsAt = startsAt
	} else if req.Time != nil {
		t, err := time.Parse(domain.TimeLayout, strings.TrimSpace(*req.Time))
		if err != nil {
			return nil, domain.ErrInvalidTime
		}
		d := event.StartsAt
		event.StartsAt = time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	}
	if req.Location != nil {
		event.Location = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	event.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, *event); err != nil {
		return nil, err
	}

	return eventResponse(event), nil
}

func (s *service) Delete(ctx context.Context, userID snowflake.ID, id string) error {
	eventID, err := parseEventID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, eventID)
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	return s.repo.SearchByTitle(ctx, query, limit)
}

// parseStartsAt combines a required date with an optional time-of-day,
// both interpreted as UTC.
func parseStartsAt(dateStr, timeStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, domain.ErrInvalidDate
	}

	date, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}

	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return time.Date(date.Year(), date.Month(), date.Day(), defaultEventHour, 0, 0, 0, time.UTC), nil
	}

	t, err := time.Parse(domain.TimeLayout, timeStr)
	if err != nil {
		return time.Time{}, domain.ErrInvalidTime
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func eventResponse(event *domain.Event) *domain.EventResponse {
	return &domain.EventResponse{
		ID:          event.ID.String(),
		OrgID:       event.OrgID.String(),
		Title:       event.Title,
		StartsAt:    event.StartsAt,
		Location:    event.Location,
		Description: event.Description,
	}
}

func parseEventID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrEventNotFound
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrEventNotFound
	}
	return id, nil
}
