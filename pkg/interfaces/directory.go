package interfaces

import "context"

// Zone 名字目录中的一个区域节点
//
// 域名自右向左解析：根节点按顶级标签持有子区域，
// 逐级委派，终端节点保存叶子名到邮箱节点地址（host:port）的映射。
// 实现可以是进程内节点，也可以是远端节点的 RPC 句柄。
type Zone interface {
	// RegisterZone 在 domain 对应的位置登记子区域
	RegisterZone(ctx context.Context, domain string, zone Zone) error

	// RegisterMailbox 在 domain 对应的位置登记邮箱节点地址
	RegisterMailbox(ctx context.Context, domain, addr string) error

	// GetZone 返回直接子区域
	GetZone(ctx context.Context, label string) (Zone, error)

	// Resolve 解析名字到邮箱节点地址，多标签名字按同样规则委派
	Resolve(ctx context.Context, name string) (string, error)

	// Addr 返回区域的 RPC 地址；纯进程内区域返回空串
	Addr() string
}
