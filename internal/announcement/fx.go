package announcement

import (
	"github.com/opencommune/commune/internal/announcement/repository"
	"github.com/opencommune/commune/internal/announcement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("announcement.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
