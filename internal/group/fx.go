package group

import (
	"github.com/opencommune/commune/internal/group/repository"
	"github.com/opencommune/commune/internal/group/service"
	"go.uber.org/fx"
)

var Module = fx.Module("group.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
