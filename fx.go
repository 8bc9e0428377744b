package mailmesh

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/directory"
	"github.com/dep2p/go-mailmesh/internal/core/dispatch"
	"github.com/dep2p/go-mailmesh/internal/core/keystore"
	"github.com/dep2p/go-mailmesh/internal/core/mailbox"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/core/stats"
	"github.com/dep2p/go-mailmesh/internal/core/userstore"
	"github.com/dep2p/go-mailmesh/internal/protocol/retrieval"
	"github.com/dep2p/go-mailmesh/internal/protocol/submission"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// buildFxApp 按角色装配节点的 fx 应用
func buildFxApp(nc *nodeConfig, node *Node) (*fx.App, error) {
	cfg := nc.config

	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置与公共组件
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		metrics.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 注入的组件（替代按配置创建）
	// ════════════════════════════════════════════════════════════════════════
	if nc.keys != nil {
		keys := nc.keys
		modules = append(modules, fx.Provide(func() pkgif.KeyStore { return keys }))
	}
	if nc.users != nil {
		users := nc.users
		modules = append(modules, fx.Provide(func() pkgif.UserRegistry { return users }))
	}
	if nc.root != nil {
		root := nc.root
		modules = append(modules, fx.Provide(fx.Annotate(
			func() pkgif.Zone { return root },
			fx.ResultTags(`name:"`+directory.RootName+`"`),
		)))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 角色模块
	// ════════════════════════════════════════════════════════════════════════
	switch cfg.Node.Role {
	case config.RoleTransfer:
		// 中转节点的密钥可选，只用于给未签名的邮件签名
		if nc.keys == nil && cfg.Keys.Dir != "" {
			modules = append(modules, keystore.Module())
		}
		modules = append(modules,
			directory.ClientModule(),
			stats.EmitterModule(),
			dispatch.Module(),
			submission.Module(),
		)

	case config.RoleMailbox:
		if nc.keys == nil {
			if cfg.Keys.Dir == "" {
				return nil, ErrMissingKeys
			}
			modules = append(modules, keystore.Module())
		}
		if nc.users == nil {
			if cfg.Users.File == "" && len(cfg.Users.Users) == 0 {
				return nil, ErrMissingUsers
			}
			modules = append(modules, userstore.Module())
		}
		modules = append(modules,
			mailbox.Module(),
			directory.ClientModule(),
			submission.Module(),
			retrieval.Module(),
			// 在提交端口监听之后登记，钩子按注册顺序执行
			fx.Invoke(registerMailboxDomain),
		)

	case config.RoleNameserver:
		modules = append(modules, directory.ServerModule())

	case config.RoleMonitor:
		modules = append(modules, stats.CollectorModule())

	default:
		return nil, fmt.Errorf("unknown node role %q", cfg.Node.Role)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(nc.userFxOptions) > 0 {
		modules = append(modules, nc.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 邮箱域登记
// ════════════════════════════════════════════════════════════════════════════

type registrationInput struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Root   pkgif.Zone
	Server *submission.Server
}

// registerMailboxDomain 启动时把 domain -> host:port 登记到名字目录
func registerMailboxDomain(input registrationInput) {
	domain := input.Config.Node.Domain
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := input.Server.AdvertiseAddr()
			if err := input.Root.RegisterMailbox(ctx, domain, addr); err != nil {
				return fmt.Errorf("登记邮箱域 %s 失败: %w", domain, err)
			}
			log.Info("邮箱域已登记", "domain", domain, "addr", addr)
			return nil
		},
	})
}

// ════════════════════════════════════════════════════════════════════════════
// Node 组件注入
// ════════════════════════════════════════════════════════════════════════════

// nodeComponents 节点需要持有的组件，按角色存在或缺省
type nodeComponents struct {
	fx.In

	Metrics    *metrics.Metrics   `optional:"true"`
	Submission *submission.Server `optional:"true"`
	Retrieval  *retrieval.Server  `optional:"true"`
	Store      *mailbox.Store     `optional:"true"`
	Queue      *dispatch.Queue    `optional:"true"`
	Worker     *dispatch.Worker   `optional:"true"`
	Zone       *directory.Zone    `optional:"true"`
	Directory  *directory.Server  `optional:"true"`
	Collector  *stats.Collector   `optional:"true"`
}

func injectNodeComponents(node *Node) func(nodeComponents) {
	return func(c nodeComponents) {
		node.components = c
	}
}
