package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/auth/domain"
	"go.uber.org/zap"
)

type memUserRepo struct {
	byID    map[snowflake.ID]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:    make(map[snowflake.ID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *memUserRepo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	user, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if hash, ok := fields["password_hash"].(string); ok {
		user.PasswordHash = &hash
	}
	return nil
}

type memSessionRepo struct {
	byHash map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byHash: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) CreateSession(ctx context.Context, session *domain.Session) error {
	r.byHash[session.SessionTokenHash] = session
	return nil
}

func (r *memSessionRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *memSessionRepo) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	for _, session := range r.byHash {
		if session.ID == sessionID {
			session.LastSeenAt = lastSeen
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	for _, session := range r.byHash {
		if session.ID == sessionID {
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

func newTestAuth(t *testing.T) (domain.Service, *memUserRepo, *memSessionRepo) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	return New(zap.NewNop(), users, sessions, node), users, sessions
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Email:    " Alice@Example.Test ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "alice@example.test" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.DisplayName != "alice" {
		t.Fatalf("expected display name derived from address, got %q", user.DisplayName)
	}
	if user.PasswordHash == nil || *user.PasswordHash == "correct horse" {
		t.Fatal("password stored unhashed")
	}

	result, err := svc.Login(ctx, domain.LoginRequest{Email: "alice@example.test", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.RawToken == "" {
		t.Fatal("login returned no token")
	}

	session, err := svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("session bound to wrong user: %v", session.UserID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "alice@example.test", Password: "correct horse"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{Email: "alice@example.test", Password: "wrong"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, domain.LoginRequest{Email: "nobody@example.test", Password: "whatever"}); err != domain.ErrInvalidCredentials {
		t.Fatalf("unknown users must look like bad credentials, got %v", err)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	req := domain.CreateUserRequest{Email: "alice@example.test", Password: "correct horse"}
	if _, err := svc.CreateUser(ctx, req); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.CreateUser(ctx, req); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateUserRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestAuth(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "alice@example.test",
		Password: "short",
	})
	if err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "alice@example.test", Password: "correct horse"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "alice@example.test", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, result.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, result.RawToken); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{Email: "alice@example.test", Password: "correct horse"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := svc.VerifyPassword(ctx, user.ID, "correct horse"); err != nil {
		t.Fatalf("verify original password: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "battery staple"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if err := svc.VerifyPassword(ctx, user.ID, "correct horse"); err != domain.ErrInvalidCredentials {
		t.Fatalf("old password still verifies: %v", err)
	}
	if err := svc.VerifyPassword(ctx, user.ID, "battery staple"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "short"); err != domain.ErrInvalidCredentials {
		t.Fatalf("weak replacement accepted: %v", err)
	}
}
