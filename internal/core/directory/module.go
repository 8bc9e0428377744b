package directory

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-mailmesh/config"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// RootName 进程内注入根区域时使用的 fx 名字
const RootName = "directory_root"

// ============================================================================
//                              客户端模块
// ============================================================================

// ClientInput 客户端模块输入
type ClientInput struct {
	fx.In

	Config *config.Config

	// Local 进程内根区域，存在时优先于 RootAddr
	Local pkgif.Zone `name:"directory_root" optional:"true"`
}

// ClientOutput 客户端模块输出
type ClientOutput struct {
	fx.Out

	Pool *Pool
	Root pkgif.Zone
}

// ProvideClient 提供根区域句柄
func ProvideClient(input ClientInput) (ClientOutput, error) {
	cfg := input.Config.Directory
	pool := NewPool(PoolOptions{
		CallTimeout: cfg.CallTimeout.Duration(),
		KeepAlive:   cfg.KeepAliveInterval.Duration(),
	})
	if input.Local != nil {
		return ClientOutput{Pool: pool, Root: input.Local}, nil
	}
	if cfg.RootAddr == "" {
		return ClientOutput{}, fmt.Errorf("%w: root address not configured", ErrNotAddressable)
	}
	log.Info("使用远端根区域", "addr", cfg.RootAddr)
	return ClientOutput{Pool: pool, Root: pool.Zone(cfg.RootAddr)}, nil
}

// ClientModule 中转与邮箱节点使用的目录客户端
func ClientModule() fx.Option {
	return fx.Module("directory-client",
		fx.Provide(ProvideClient),
		fx.Invoke(registerClientLifecycle),
	)
}

func registerClientLifecycle(lc fx.Lifecycle, pool *Pool) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pool.Close()
		},
	})
}

// ============================================================================
//                              服务端模块
// ============================================================================

// ServerInput 服务端模块输入
type ServerInput struct {
	fx.In

	Config *config.Config
}

// ServerOutput 服务端模块输出
type ServerOutput struct {
	fx.Out

	Zone   *Zone
	Pool   *Pool
	Server *Server
}

// ProvideServer 创建名字服务节点负责的区域及其 RPC 服务端
func ProvideServer(input ServerInput) ServerOutput {
	cfg := input.Config.Directory
	zone := NewZone(cfg.Zone)
	pool := NewPool(PoolOptions{
		CallTimeout: cfg.CallTimeout.Duration(),
		KeepAlive:   cfg.KeepAliveInterval.Duration(),
	})
	srv := NewServer(zone, pool, ServerOptions{
		CallTimeout: cfg.CallTimeout.Duration(),
		KeepAlive:   cfg.KeepAliveInterval.Duration(),
	})
	return ServerOutput{Zone: zone, Pool: pool, Server: srv}
}

// ServerModule 名字服务节点
func ServerModule() fx.Option {
	return fx.Module("directory-server",
		fx.Provide(ProvideServer),
		fx.Invoke(registerServerLifecycle),
	)
}

type serverLifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Zone   *Zone
	Pool   *Pool
	Server *Server
}

func registerServerLifecycle(input serverLifecycleInput) {
	cfg := input.Config
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := input.Server.Listen(ctx, cfg.Directory.ListenAddr); err != nil {
				return err
			}
			input.Zone.SetAddr(AdvertiseAddr(cfg.Node.Host, input.Server.Addr()))

			if cfg.Directory.Zone == "" {
				log.Info("根区域就绪", "addr", input.Zone.Addr())
				return nil
			}
			if cfg.Directory.RootAddr == "" {
				return fmt.Errorf("zone %q: root address not configured", cfg.Directory.Zone)
			}
			root := input.Pool.Zone(cfg.Directory.RootAddr)
			if err := root.RegisterZone(ctx, cfg.Directory.Zone, input.Zone); err != nil {
				return fmt.Errorf("向根区域登记 %s 失败: %w", cfg.Directory.Zone, err)
			}
			log.Info("区域就绪", "zone", cfg.Directory.Zone, "addr", input.Zone.Addr())
			return nil
		},
		OnStop: func(context.Context) error {
			return multierr.Combine(input.Server.Close(), input.Pool.Close())
		},
	})
}

// AdvertiseAddr 以 host 替换监听地址中的主机部分
func AdvertiseAddr(host string, addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	if host == "" {
		return tcp.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}
