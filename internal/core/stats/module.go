package stats

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// EmitterOutput 发送端模块输出
type EmitterOutput struct {
	fx.Out

	Emitter *Emitter
	Sink    pkgif.StatsSink
}

// ProvideEmitter 按 monitoring.addr 创建发送端
func ProvideEmitter(cfg *config.Config) EmitterOutput {
	e := NewEmitter(cfg.Monitoring.Addr)
	if cfg.Monitoring.Addr == "" {
		log.Debug("未配置统计地址，不发送统计")
	}
	return EmitterOutput{Emitter: e, Sink: e}
}

// EmitterModule 中转节点的统计发送端
func EmitterModule() fx.Option {
	return fx.Module("stats-emitter",
		fx.Provide(ProvideEmitter),
		fx.Invoke(func(lc fx.Lifecycle, e *Emitter) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return e.Close() },
			})
		}),
	)
}

// CollectorModule 监控节点的统计收集端
func CollectorModule() fx.Option {
	return fx.Module("stats-collector",
		fx.Provide(NewCollector),
		fx.Invoke(registerCollectorLifecycle),
	)
}

func registerCollectorLifecycle(lc fx.Lifecycle, cfg *config.Config, c *Collector) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Listen(ctx, cfg.Monitoring.Addr)
		},
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
}
