package email

import (
	"github.com/opencommune/commune/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns the SMTP provider when a host is configured,
// otherwise a no-op so invite flows keep working in development.
func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMTPHost == "" {
		return &NoOpProvider{}
	}

	provider, err := NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		zap.L().Warn("smtp provider unavailable, falling back to noop", zap.Error(err))
		return &NoOpProvider{}
	}
	return provider
}
