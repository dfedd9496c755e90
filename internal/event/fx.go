package event

import (
	"github.com/opencommune/commune/internal/event/repository"
	"github.com/opencommune/commune/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
