package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeRepo struct {
	orgs    map[snowflake.ID]*domain.Organization
	members []domain.OrganizationMember
	invites []domain.OrganizationInvite
	roles   map[snowflake.ID]string

	roleErr   error
	roleCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orgs:  make(map[snowflake.ID]*domain.Organization),
		roles: make(map[snowflake.ID]string),
	}
}

func (r *fakeRepo) WithTx(tx *gorm.DB) domain.Repository { return r }

func (r *fakeRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	r.orgs[org.ID] = &org
	return nil
}

func (r *fakeRepo) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}
	return org, nil
}

func (r *fakeRepo) UpdateVisibility(ctx context.Context, id snowflake.ID, visibility string, updatedAt time.Time) error {
	if org, ok := r.orgs[id]; ok {
		org.Visibility = visibility
		org.UpdatedAt = updatedAt
	}
	return nil
}

func (r *fakeRepo) AddMember(ctx context.Context, member domain.OrganizationMember) error {
	r.members = append(r.members, member)
	return nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	return nil, nil
}

func (r *fakeRepo) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	return r.members, nil
}

func (r *fakeRepo) RoleOf(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	r.roleCalls++
	if r.roleErr != nil {
		return "", r.roleErr
	}
	role, ok := r.roles[userID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return role, nil
}

func (r *fakeRepo) CreateInvites(ctx context.Context, invites []domain.OrganizationInvite) error {
	r.invites = append(r.invites, invites...)
	return nil
}

func (r *fakeRepo) GetInviteByCode(ctx context.Context, code string) (*domain.OrganizationInvite, error) {
	for i := range r.invites {
		if r.invites[i].Code == code {
			return &r.invites[i], nil
		}
	}
	return nil, domain.ErrInviteNotFound
}

func (r *fakeRepo) UpdateInvite(ctx context.Context, invite domain.OrganizationInvite) error {
	for i := range r.invites {
		if r.invites[i].ID == invite.ID {
			r.invites[i] = invite
			return nil
		}
	}
	return domain.ErrInviteNotFound
}

func (r *fakeRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.SearchItem, error) {
	return nil, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T, repo domain.Repository) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(testDB(t), repo, node, nil)
}

func TestCreateOrganization(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	resp, err := svc.Create(context.Background(), 42, domain.CreateOrganizationRequest{
		Name: "  Riverside Garden Club  ",
		Type: "CLUB",
	})
	require.NoError(t, err)

	assert.Equal(t, "Riverside Garden Club", resp.Name)
	assert.Equal(t, "riverside-garden-club", resp.Slug)
	assert.Equal(t, domain.VisibilityPrivate, resp.Visibility)

	require.Len(t, repo.members, 1)
	assert.Equal(t, domain.RoleOwner, repo.members[0].Role)
	assert.Equal(t, snowflake.ID(42), repo.members[0].UserID)
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc := newTestService(t, newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, 0, domain.CreateOrganizationRequest{Name: "x", Type: "CLUB"})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = svc.Create(ctx, 42, domain.CreateOrganizationRequest{Name: "   ", Type: "CLUB"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, 42, domain.CreateOrganizationRequest{Name: "x", Type: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestInviteMembersFiltersAddresses(t *testing.T) {
	repo := newFakeRepo()
	repo.roles[42] = domain.RoleOwner
	svc := newTestService(t, repo)

	result, err := svc.InviteMembers(context.Background(), 42, "1001", domain.InviteMembersRequest{
		Emails: []string{"", "  ", "alice@example.test", "not-an-address", " Bob@Example.Test "},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, []string{"not-an-address"}, result.Skipped)

	require.Len(t, repo.invites, 2)
	assert.Equal(t, "alice@example.test", repo.invites[0].Email)
	assert.Equal(t, "bob@example.test", repo.invites[1].Email)
	for _, invite := range repo.invites {
		assert.Equal(t, domain.RoleMember, invite.Role, "blank role defaults to member")
		assert.Equal(t, domain.InviteStatusPending, invite.Status)
		assert.NotEmpty(t, invite.Code)
	}
}

func TestInviteMembersAllInvalid(t *testing.T) {
	repo := newFakeRepo()
	repo.roles[42] = domain.RoleOwner
	svc := newTestService(t, repo)

	_, err := svc.InviteMembers(context.Background(), 42, "1001", domain.InviteMembersRequest{
		Emails: []string{"", "nope", "   "},
	})
	assert.ErrorIs(t, err, domain.ErrNoValidEmails)
	assert.Empty(t, repo.invites, "nothing may be written when every address is invalid")
	assert.Zero(t, repo.roleCalls, "a local validation failure must not reach the store")
}

func TestInviteMembersRequiresMembership(t *testing.T) {
	repo := newFakeRepo()
	repo.roleErr = gorm.ErrRecordNotFound
	svc := newTestService(t, repo)

	_, err := svc.InviteMembers(context.Background(), 42, "1001", domain.InviteMembersRequest{
		Emails: []string{"alice@example.test"},
	})
	assert.Error(t, err)
}

func TestAcceptInvite(t *testing.T) {
	repo := newFakeRepo()
	repo.roles[42] = domain.RoleOwner
	svc := newTestService(t, repo)

	_, err := svc.InviteMembers(context.Background(), 42, "1001", domain.InviteMembersRequest{
		Emails: []string{"alice@example.test"},
		Role:   domain.RoleAdmin,
	})
	require.NoError(t, err)
	code := repo.invites[0].Code

	require.NoError(t, svc.AcceptInvite(context.Background(), 77, code))

	require.Len(t, repo.members, 1)
	assert.Equal(t, snowflake.ID(77), repo.members[0].UserID)
	assert.Equal(t, domain.RoleAdmin, repo.members[0].Role, "membership role comes from the invite")
	assert.Equal(t, domain.InviteStatusAccepted, repo.invites[0].Status)

	// A consumed invite cannot be accepted again.
	err = svc.AcceptInvite(context.Background(), 78, code)
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)
}

func TestAcceptInviteUnknownCode(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	err := svc.AcceptInvite(context.Background(), 77, "no-such-code")
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)
}

func TestUpdateVisibility(t *testing.T) {
	repo := newFakeRepo()
	repo.roles[42] = domain.RoleOwner
	repo.roles[77] = domain.RoleMember
	svc := newTestService(t, repo)
	ctx := context.Background()

	assert.NoError(t, svc.UpdateVisibility(ctx, 42, "1001", domain.VisibilityPublic))

	err := svc.UpdateVisibility(ctx, 77, "1001", domain.VisibilityPublic)
	assert.ErrorIs(t, err, domain.ErrForbidden, "plain members cannot publish")

	err = svc.UpdateVisibility(ctx, 42, "1001", "FRIENDS_ONLY")
	assert.ErrorIs(t, err, domain.ErrInvalidVisibility)
}

func TestInviteEmailFailureDoesNotFailInvite(t *testing.T) {
	repo := newFakeRepo()
	repo.roles[42] = domain.RoleOwner
	repo.orgs[1001] = &domain.Organization{ID: 1001, Name: "Garden Club"}
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(testDB(t), repo, node, failingMailer{})

	result, err := svc.InviteMembers(context.Background(), 42, "1001", domain.InviteMembersRequest{
		Emails: []string{"alice@example.test"},
	})
	require.NoError(t, err, "invite persistence must not depend on email delivery")
	assert.Equal(t, 1, result.Created)
}

type failingMailer struct{}

func (failingMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return errors.New("smtp down")
}

func (failingMailer) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	return errors.New("smtp down")
}
