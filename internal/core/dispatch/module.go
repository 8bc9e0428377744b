package dispatch

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/protocol/submission"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config  *config.Config
	Root    pkgif.Zone
	Stats   pkgif.StatsSink  `optional:"true"`
	Keys    pkgif.KeyStore   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Queue    *Queue
	Acceptor pkgif.Acceptor
}

// ProvideServices 创建节点唯一的投递队列及其收件策略
func ProvideServices(input ModuleInput) ModuleOutput {
	cfg := input.Config.Dispatch
	q := NewQueue(cfg.QueueCapacity, input.Metrics.SetQueueDepth)
	return ModuleOutput{
		Queue:    q,
		Acceptor: NewAcceptor(q, cfg.EnqueueTimeout.Duration()),
	}
}

type workerInput struct {
	fx.In

	ModuleInput
	Queue  *Queue
	Server *submission.Server
}

// ProvideWorker 创建投递工作者，统计中的服务器地址取自提交端口
func ProvideWorker(input workerInput) (*Worker, error) {
	cfg := input.Config.Dispatch
	return NewWorker(input.Queue, WorkerOptions{
		Root:         input.Root,
		Stats:        input.Stats,
		Keys:         input.Keys,
		Metrics:      input.Metrics,
		Advertise:    input.Server.AdvertiseAddr,
		Host:         input.Config.Node.Host,
		BounceSender: cfg.BounceSender,
		DialTimeout:  cfg.DialTimeout.Duration(),
		ReplyTimeout: cfg.ReplyTimeout.Duration(),
		CacheSize:    cfg.ConnCacheSize,
		SocksProxy:   cfg.SocksProxy,
	})
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(ProvideServices, ProvideWorker),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, q *Queue, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			q.Close()
			w.Stop()
			return nil
		},
	})
}
