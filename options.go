package mailmesh

import (
	"errors"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// Option 节点配置选项
type Option func(*nodeConfig) error

// nodeConfig 构建节点所需的全部输入
type nodeConfig struct {
	config *config.Config

	// 以下为注入的组件，存在时替代按配置创建的组件
	keys  pkgif.KeyStore
	users pkgif.UserRegistry
	root  pkgif.Zone

	userFxOptions []fx.Option
}

func newNodeConfig() *nodeConfig {
	return &nodeConfig{config: config.NewConfig()}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(nc *nodeConfig) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		nc.config = cfg
		return nil
	}
}

// WithRole 设置节点角色
func WithRole(role config.Role) Option {
	return func(nc *nodeConfig) error {
		nc.config.Node.Role = role
		return nil
	}
}

// WithKeyStore 注入密钥，替代 keys.dir
func WithKeyStore(keys pkgif.KeyStore) Option {
	return func(nc *nodeConfig) error {
		if keys == nil {
			return errors.New("key store is nil")
		}
		nc.keys = keys
		return nil
	}
}

// WithUsers 注入用户注册表，替代 users 配置
func WithUsers(users pkgif.UserRegistry) Option {
	return func(nc *nodeConfig) error {
		if users == nil {
			return errors.New("user registry is nil")
		}
		nc.users = users
		return nil
	}
}

// WithDirectory 使用进程内的根区域，替代 directory.root_addr
//
// 适用于所有节点在同一进程中的部署与测试。
func WithDirectory(root pkgif.Zone) Option {
	return func(nc *nodeConfig) error {
		if root == nil {
			return errors.New("directory root is nil")
		}
		nc.root = root
		return nil
	}
}

// WithFxOption 追加用户的 fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(nc *nodeConfig) error {
		nc.userFxOptions = append(nc.userFxOptions, opts...)
		return nil
	}
}
