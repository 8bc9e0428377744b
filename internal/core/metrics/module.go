package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Metrics *Metrics
}

// ProvideServices 创建节点指标
func ProvideServices(ModuleInput) ModuleOutput {
	return ModuleOutput{Metrics: New()}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Config  *config.Config
	Metrics *Metrics
}

func registerLifecycle(input lifecycleInput) {
	addr := input.Config.Metrics.ListenAddr
	if addr == "" {
		return
	}
	var srv *Server
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s, err := Serve(ctx, input.Metrics, addr)
			if err != nil {
				return err
			}
			srv = s
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if srv == nil {
				return nil
			}
			return srv.Close(ctx)
		},
	})
}
