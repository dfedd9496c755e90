package notification

import (
	"github.com/opencommune/commune/internal/config"
	"github.com/opencommune/commune/internal/notification/domain"
	"github.com/opencommune/commune/internal/notification/feed"
	"github.com/opencommune/commune/internal/notification/live"
	"github.com/opencommune/commune/internal/notification/repository"
	"github.com/opencommune/commune/internal/notification/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(live.NewHub),
	fx.Provide(newPublisher),
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(newFeedRegistry),
)

func newFeedRegistry(lc fx.Lifecycle, svc domain.Service, hub *live.Hub, tuning *config.TuningHolder) *feed.Registry {
	registry := feed.NewRegistry(svc, hub, tuning)
	lc.Append(fx.StartStopHook(registry.Start, registry.Stop))
	return registry
}

func newPublisher(lc fx.Lifecycle, hub *live.Hub, client *redis.Client) live.Publisher {
	fanout := live.NewRedisFanout(hub, client)
	lc.Append(fx.StartStopHook(fanout.Start, fanout.Stop))
	return fanout
}
