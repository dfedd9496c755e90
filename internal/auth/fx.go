package auth

import (
	"github.com/opencommune/commune/internal/auth/repository"
	"github.com/opencommune/commune/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
