package mailbox

import (
	"context"
	"fmt"

	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Acceptor 邮箱节点（最终一跳）的收件策略
//
// 中转节点会把完整的收件人列表重放给每个目标域，
// 因此其他域的收件人被跳过；本域收件人必须全部是已注册用户，且至少一个。
type Acceptor struct {
	domain string
	store  pkgif.MailStore
}

// 确保实现接口
var _ pkgif.Acceptor = (*Acceptor)(nil)

// NewAcceptor 创建邮箱节点收件策略
func NewAcceptor(domain string, store pkgif.MailStore) *Acceptor {
	return &Acceptor{domain: domain, store: store}
}

// local 返回属于本域的收件人的本地部分
func (a *Acceptor) local(to []string) ([]string, error) {
	var users []string
	for _, rcpt := range to {
		user, domain, err := types.SplitAddress(rcpt)
		if err != nil {
			return nil, err
		}
		if domain != a.domain {
			continue
		}
		if !a.store.HasUser(user) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, rcpt)
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		return nil, ErrForeignDomain
	}
	return users, nil
}

// Recipients 实现 Acceptor，返回接受的本域收件人数
func (a *Acceptor) Recipients(to []string) (int, error) {
	users, err := a.local(to)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// Accept 实现 Acceptor，为每个本域收件人存一份
func (a *Acceptor) Accept(_ context.Context, msg *types.Message) error {
	users, err := a.local(msg.To)
	if err != nil {
		return err
	}
	for _, u := range users {
		if _, err := a.store.Put(u, msg); err != nil {
			return err
		}
	}
	log.Info("邮件已接收", "id", msg.ID, "from", msg.From, "recipients", len(users))
	return nil
}
