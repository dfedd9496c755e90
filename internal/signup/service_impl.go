package signup

import (
	"context"
	"strings"

	authdomain "github.com/opencommune/commune/internal/auth/domain"
	"github.com/opencommune/commune/internal/signup/domain"
)

type service struct {
	authsvc     authdomain.Service
	provisioner domain.Provisioner
}

func NewService(authsvc authdomain.Service, provisioner domain.Provisioner) domain.Service {
	return &service{
		authsvc:     authsvc,
		provisioner: provisioner,
	}
}

// Signup creates the account, provisions post-signup state, and logs
// the new user straight in. Organization setup happens afterwards in
// the onboarding wizard, not here.
func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.authsvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	if err := s.provisioner.Provision(ctx, user.ID); err != nil {
		return nil, err
	}

	login, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		UserID:    user.ID.String(),
		RawToken:  login.RawToken,
		ExpiresAt: login.ExpiresAt,
		SessionID: login.SessionID,
	}, nil
}
