package mailbox

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config
	Users  pkgif.UserRegistry
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Store     *Store
	MailStore pkgif.MailStore
	Acceptor  pkgif.Acceptor
}

// ProvideServices 为注册表中的每个用户创建邮箱
func ProvideServices(input ModuleInput) ModuleOutput {
	store := NewStore(input.Users.Users())
	log.Info("邮箱存储就绪", "domain", input.Config.Node.Domain, "users", len(store.Users()))
	return ModuleOutput{
		Store:     store,
		MailStore: store,
		Acceptor:  NewAcceptor(input.Config.Node.Domain, store),
	}
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("mailbox", fx.Provide(ProvideServices))
}
