package reminder

import "go.uber.org/fx"

var Module = fx.Module("reminder",
	fx.Provide(func() Config { return Config{} }),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.StartStopHook(s.Start, s.Stop))
	}),
)
