package submission

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Acceptor pkgif.Acceptor
	Keys     pkgif.KeyStore   `optional:"true"`
	Metrics  *metrics.Metrics `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Server *Server
}

// ProvideServices 创建提交协议服务端
func ProvideServices(input ModuleInput) ModuleOutput {
	return ModuleOutput{Server: NewServer(Options{
		Config:   input.Config.Submission.ServerConfig,
		Host:     input.Config.Node.Host,
		Acceptor: input.Acceptor,
		Keys:     input.Keys,
		Metrics:  input.Metrics,
	})}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("submission",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Listen(ctx); err != nil {
				return err
			}
			log.Info("提交端口就绪", "addr", srv.AdvertiseAddr())
			return nil
		},
		OnStop: func(context.Context) error {
			return srv.Close()
		},
	})
}
