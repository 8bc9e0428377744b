package userstore

import (
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

	Registry pkgif.UserRegistry
}

// ProvideServices 按配置加载用户注册表
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	reg, err := Load(input.Config.Users.File, input.Config.Users.Users)
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("加载用户注册表失败: %w", err)
	}
	log.Info("用户注册表就绪", "users", len(reg.Users()))
	return ModuleOutput{Registry: reg}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("userstore", fx.Provide(ProvideServices))
}
