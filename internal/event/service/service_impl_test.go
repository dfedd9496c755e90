package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/event/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepo struct {
	events map[snowflake.ID]*domain.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{events: make(map[snowflake.ID]*domain.Event)}
}

func (r *fakeRepo) WithTx(tx *gorm.DB) domain.Repository { return r }

func (r *fakeRepo) Create(ctx context.Context, event domain.Event) error {
	r.events[event.ID] = &event
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id snowflake.ID) (*domain.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeRepo) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range r.events {
		if e.OrgID == orgID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(ctx context.Context, event domain.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return domain.ErrEventNotFound
	}
	r.events[event.ID] = &event
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id snowflake.ID) error {
	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeRepo) SearchByTitle(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo domain.Repository) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(nil, repo, node)
}

func TestCreateEventWithTime(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	resp, err := svc.Create(context.Background(), 42, domain.CreateEventRequest{
		OrgID: 1001,
		Title: "  Spring Cleanup  ",
		Date:  "2026-09-15",
		Time:  "09:30",
	})
	require.NoError(t, err)

	assert.Equal(t, "Spring Cleanup", resp.Title)
	assert.Equal(t, time.Date(2026, 9, 15, 9, 30, 0, 0, time.UTC), resp.StartsAt)
}

func TestCreateEventDefaultsToEvening(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	resp, err := svc.Create(context.Background(), 42, domain.CreateEventRequest{
		OrgID: 1001,
		Title: "Potluck",
		Date:  "2026-09-15",
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 9, 15, 18, 0, 0, 0, time.UTC), resp.StartsAt,
		"a date without a time lands at 18:00 UTC")
}

func TestCreateEventValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, 42, domain.CreateEventRequest{Title: "x", Date: "2026-09-15"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrg)

	_, err = svc.Create(ctx, 42, domain.CreateEventRequest{OrgID: 1001, Title: "  ", Date: "2026-09-15"})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = svc.Create(ctx, 42, domain.CreateEventRequest{OrgID: 1001, Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = svc.Create(ctx, 42, domain.CreateEventRequest{OrgID: 1001, Title: "x", Date: "15/09/2026"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = svc.Create(ctx, 42, domain.CreateEventRequest{OrgID: 1001, Title: "x", Date: "2026-09-15", Time: "9:30pm"})
	assert.ErrorIs(t, err, domain.ErrInvalidTime)
}

func TestUpdateEventPartialFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 42, domain.CreateEventRequest{
		OrgID:    1001,
		Title:    "Potluck",
		Date:     "2026-09-15",
		Time:     "12:00",
		Location: "Main hall",
	})
	require.NoError(t, err)

	// Changing only the time keeps the date.
	newTime := "19:15"
	resp, err := svc.Update(ctx, 42, created.ID, domain.UpdateEventRequest{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 15, 19, 15, 0, 0, time.UTC), resp.StartsAt)
	assert.Equal(t, "Main hall", resp.Location)

	// Changing only the date keeps the time-of-day.
	newDate := "2026-10-01"
	resp, err = svc.Update(ctx, 42, created.ID, domain.UpdateEventRequest{Date: &newDate})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 19, 15, 0, 0, time.UTC), resp.StartsAt)

	blank := "   "
	_, err = svc.Update(ctx, 42, created.ID, domain.UpdateEventRequest{Title: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
}

func TestDeleteEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 42, domain.CreateEventRequest{
		OrgID: 1001,
		Title: "Potluck",
		Date:  "2026-09-15",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 42, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, 42, created.ID), domain.ErrEventNotFound)

	_, err = svc.GetByID(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
