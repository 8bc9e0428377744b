package mailmesh

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/dispatch"
	"github.com/dep2p/go-mailmesh/internal/core/mailbox"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/core/stats"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
)

var log = logger.Logger("mailmesh")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle NodeState = iota

	// StateStarting 启动中（Fx App 启动中）
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              Node 结构
// ════════════════════════════════════════════════════════════════════════════

// Node 一个 mailmesh 节点
//
// 角色由 config.NodeConfig.Role 决定。fx 应用不能重启，
// 因此 Stop 之后节点即关闭，需要重新 New。
type Node struct {
	config *config.Config
	app    *fx.App

	components nodeComponents

	mu      sync.Mutex
	state   NodeState
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建节点但不启动
//
// 示例：
//
//	node, err := mailmesh.New(ctx,
//	    mailmesh.WithConfig(cfg),
//	    mailmesh.WithKeyStore(keys),
//	)
func New(_ context.Context, opts ...Option) (*Node, error) {
	nc := newNodeConfig()
	for _, opt := range opts {
		if err := opt(nc); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if err := nc.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	node := &Node{config: nc.config}
	app, err := buildFxApp(nc, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app
	return node, nil
}

// Start 创建节点并立即启动，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点的全部组件
//
// 任一组件启动失败时，已启动的组件按相反顺序停止，节点进入关闭状态。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	log.Info("正在启动节点", "role", n.config.Node.Role)

	startCtx, cancel := context.WithTimeout(ctx, n.config.Node.StartTimeout.Duration())
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		// fx 在 Start 失败时已回滚已启动的钩子
		n.state = StateStopped
		n.closed = true
		log.Error("节点启动失败", "role", n.config.Node.Role, "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	n.state = StateRunning
	n.started = true
	log.Info("节点已启动", "role", n.config.Node.Role)
	return nil
}

// Stop 停止节点，之后节点不可再启动
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return n.stopLocked(ctx)
}

// Close 关闭节点并释放所有资源，可重复调用
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	if !n.started {
		n.closed = true
		n.state = StateStopped
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.config.Node.StopTimeout.Duration())
	defer cancel()
	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	n.state = StateStopping
	log.Info("正在停止节点", "role", n.config.Node.Role)

	err := n.app.Stop(ctx)

	// 即使停止出错，也标记为已停止
	n.state = StateStopped
	n.started = false
	n.closed = true
	if err != nil {
		log.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	log.Info("节点已停止")
	return nil
}

// State 返回节点当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// Role 返回节点角色
func (n *Node) Role() config.Role {
	return n.config.Node.Role
}

// Config 返回节点配置
func (n *Node) Config() *config.Config {
	return n.config
}

// SubmissionAddr 返回 DMTP 端口对外公布的 host:port
//
// 仅中转与邮箱节点有效。
func (n *Node) SubmissionAddr() string {
	if n.components.Submission == nil {
		return ""
	}
	return n.components.Submission.AdvertiseAddr()
}

// RetrievalAddr 返回 DMAP 端口的监听地址，仅邮箱节点有效
func (n *Node) RetrievalAddr() string {
	if n.components.Retrieval == nil {
		return ""
	}
	return addrString(n.components.Retrieval.Addr())
}

// DirectoryAddr 返回名字服务节点公布的 RPC 地址
func (n *Node) DirectoryAddr() string {
	if n.components.Zone == nil {
		return ""
	}
	return n.components.Zone.Addr()
}

// MonitorAddr 返回统计收集端的 UDP 地址
func (n *Node) MonitorAddr() string {
	if n.components.Collector == nil {
		return ""
	}
	return addrString(n.components.Collector.Addr())
}

// Store 返回邮箱存储，仅邮箱节点有效
func (n *Node) Store() *mailbox.Store {
	return n.components.Store
}

// Queue 返回投递队列，仅中转节点有效
func (n *Node) Queue() *dispatch.Queue {
	return n.components.Queue
}

// Collector 返回统计收集端，仅监控节点有效
func (n *Node) Collector() *stats.Collector {
	return n.components.Collector
}

// Metrics 返回节点指标
func (n *Node) Metrics() *metrics.Metrics {
	return n.components.Metrics
}

// Zones 返回名字服务节点的子区域标签
func (n *Node) Zones() []string {
	if n.components.Zone == nil {
		return nil
	}
	return n.components.Zone.Children()
}

// Mailboxes 返回名字服务节点登记的叶子，格式为 "label host:port"
func (n *Node) Mailboxes() []string {
	if n.components.Zone == nil {
		return nil
	}
	leaves := n.components.Zone.Leaves()
	out := make([]string, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, l.Label+" "+l.Addr)
	}
	return out
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
