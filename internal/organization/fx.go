package organization

import (
	"github.com/opencommune/commune/internal/organization/repository"
	"github.com/opencommune/commune/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
