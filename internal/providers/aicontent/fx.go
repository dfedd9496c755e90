package aicontent

import (
	"github.com/opencommune/commune/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.aicontent",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Generator {
	if cfg.AIContentEndpoint == "" {
		return &NoOpGenerator{}
	}
	return NewHTTP(cfg.AIContentEndpoint, cfg.AIContentToken)
}
