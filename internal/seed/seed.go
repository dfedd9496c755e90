package seed

import (
	"context"
	"errors"
	"strings"

	authdomain "github.com/opencommune/commune/internal/auth/domain"
	"github.com/opencommune/commune/internal/config"
	"go.uber.org/zap"
)

// EnsureDefaultAdmin creates the bootstrap admin account for
// self-hosted installs. Already-existing accounts are left alone.
func EnsureDefaultAdmin(ctx context.Context, authsvc authdomain.Service, cfg config.BootstrapConfig) error {
	email := strings.TrimSpace(cfg.AdminEmail)
	password := strings.TrimSpace(cfg.AdminPassword)
	if email == "" || password == "" {
		zap.L().Warn("bootstrap admin requested but email or password missing, skipping")
		return nil
	}

	_, err := authsvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:       email,
		Password:    password,
		DisplayName: "Commune Admin",
	})
	if errors.Is(err, authdomain.ErrUserExists) {
		return nil
	}
	return err
}
