package interfaces

import (
	"context"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Acceptor 提交会话的收件策略
//
// 中转节点按目标域分组并放入投递队列；邮箱节点只接受本域已注册用户并直接存储。
type Acceptor interface {
	// Recipients 检查收件人，返回 "ok <n>" 中的 n
	Recipients(to []string) (int, error)

	// Accept 接收一封完整的邮件，可能阻塞（例如投递队列已满）
	Accept(ctx context.Context, msg *types.Message) error
}
