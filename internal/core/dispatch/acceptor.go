package dispatch

import (
	"context"
	"errors"
	"time"

	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// Acceptor 中转节点的收件策略：按目标域计数，send 时放入投递队列
type Acceptor struct {
	queue   *Queue
	timeout time.Duration
}

// 确保实现接口
var _ pkgif.Acceptor = (*Acceptor)(nil)

// NewAcceptor 创建收件策略；timeout 为队列满时的最长等待，0 表示等到会话结束
func NewAcceptor(queue *Queue, timeout time.Duration) *Acceptor {
	return &Acceptor{queue: queue, timeout: timeout}
}

// Recipients 实现 Acceptor，返回不同目标域的个数
func (a *Acceptor) Recipients(to []string) (int, error) {
	m := types.Message{To: to}
	n := len(m.DestinationDomains())
	if n == 0 {
		return 0, types.ErrNoRecipients
	}
	return n, nil
}

// Accept 实现 Acceptor
func (a *Acceptor) Accept(ctx context.Context, msg *types.Message) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	err := a.queue.Enqueue(ctx, msg.Clone())
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrQueueFull
	}
	if err == nil {
		log.Debug("邮件已入队", "id", msg.ID, "depth", a.queue.Len())
	}
	return err
}
