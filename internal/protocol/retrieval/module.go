package retrieval

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

	Config  *config.Config
	Keys    pkgif.KeyStore
	Users   pkgif.UserRegistry
	Store   pkgif.MailStore
	Metrics *metrics.Metrics `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Server *Server
}

// ProvideServices 创建邮箱访问服务端
func ProvideServices(input ModuleInput) ModuleOutput {
	return ModuleOutput{Server: NewServer(Options{
		Config:      input.Config.Retrieval,
		ComponentID: input.Config.Node.ComponentID,
		Keys:        input.Keys,
		Users:       input.Users,
		Store:       input.Store,
		Metrics:     input.Metrics,
	})}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("retrieval",
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
			log.Info("邮箱访问端口就绪", "addr", srv.Addr().String())
			return nil
		},
		OnStop: func(context.Context) error {
			return srv.Close()
		},
	})
}
