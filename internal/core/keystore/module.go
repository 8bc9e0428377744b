// Package keystore 提供密钥材料
//
// 私钥与共享密钥以 memguard enclave 形式驻留内存，只在使用期间解密。
package keystore

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	KeyStore pkgif.KeyStore
	Store    *FileStore
}

// ProvideServices 打开配置的密钥目录
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	store, err := OpenDir(input.Config.Keys.Dir)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("打开密钥目录失败: %w", err)
	}
	log.Info("密钥目录已打开", "dir", input.Config.Keys.Dir)
	return ModuleOutput{KeyStore: store, Store: store}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("keystore",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC    fx.Lifecycle
	Store *FileStore
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return input.Store.Close()
		},
	})
}
