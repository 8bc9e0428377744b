package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

var log = logger.Logger("directory")

// Zone 进程内区域节点
type Zone struct {
	// name 区域的完整域名，根区域为空
	name string

	// addr 对外公布的 RPC 地址
	addr atomic.Pointer[string]

	// children 标签 -> pkgif.Zone
	children sync.Map

	// leaves 标签 -> host:port
	leaves sync.Map
}

// 确保实现接口
var _ pkgif.Zone = (*Zone)(nil)

// NewZone 创建区域，name 为其完整域名（根区域为空）
func NewZone(name string) *Zone {
	return &Zone{name: name}
}

// Name 返回区域完整域名
func (z *Zone) Name() string {
	return z.name
}

// SetAddr 设置区域对外公布的 RPC 地址
func (z *Zone) SetAddr(addr string) {
	z.addr.Store(&addr)
}

// Addr 实现 Zone
func (z *Zone) Addr() string {
	if p := z.addr.Load(); p != nil {
		return *p
	}
	return ""
}

// RegisterZone 实现 Zone
func (z *Zone) RegisterZone(ctx context.Context, domain string, child pkgif.Zone) error {
	prefix, label, err := split(domain)
	if err != nil {
		return err
	}
	if prefix != "" {
		next, err := z.delegate(domain, label)
		if err != nil {
			return err
		}
		return next.RegisterZone(ctx, prefix, child)
	}

	if _, loaded := z.children.LoadOrStore(label, child); loaded {
		return &AlreadyRegisteredError{Zone: z.name, Label: label}
	}
	log.Info("子区域已登记", "zone", zoneName(z.name), "label", label, "addr", child.Addr())
	return nil
}

// RegisterMailbox 实现 Zone
func (z *Zone) RegisterMailbox(ctx context.Context, domain, addr string) error {
	prefix, label, err := split(domain)
	if err != nil {
		return err
	}
	if prefix != "" {
		next, err := z.delegate(domain, label)
		if err != nil {
			return err
		}
		return next.RegisterMailbox(ctx, prefix, addr)
	}

	if _, loaded := z.leaves.LoadOrStore(label, addr); loaded {
		return &AlreadyRegisteredError{Zone: z.name, Label: label}
	}
	log.Info("邮箱节点已登记", "zone", zoneName(z.name), "label", label, "addr", addr)
	return nil
}

// GetZone 实现 Zone
func (z *Zone) GetZone(_ context.Context, label string) (pkgif.Zone, error) {
	v, ok := z.children.Load(label)
	if !ok {
		return nil, &NotFoundError{Name: qualify(label, z.name)}
	}
	return v.(pkgif.Zone), nil
}

// Resolve 实现 Zone
func (z *Zone) Resolve(ctx context.Context, name string) (string, error) {
	prefix, label, err := split(name)
	if err != nil {
		return "", err
	}
	if prefix != "" {
		v, ok := z.children.Load(label)
		if !ok {
			return "", &NotFoundError{Name: qualify(name, z.name)}
		}
		return v.(pkgif.Zone).Resolve(ctx, prefix)
	}

	v, ok := z.leaves.Load(label)
	if !ok {
		return "", &NotFoundError{Name: qualify(label, z.name)}
	}
	return v.(string), nil
}

// Children 返回排序后的子区域标签
func (z *Zone) Children() []string {
	var out []string
	z.children.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Leaf 一条叶子登记
type Leaf struct {
	Label string
	Addr  string
}

// Leaves 返回按标签排序的叶子登记
func (z *Zone) Leaves() []Leaf {
	var out []Leaf
	z.leaves.Range(func(k, v any) bool {
		out = append(out, Leaf{Label: k.(string), Addr: v.(string)})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func (z *Zone) delegate(domain, label string) (pkgif.Zone, error) {
	v, ok := z.children.Load(label)
	if !ok {
		return nil, &InvalidDomainError{Domain: domain, Missing: qualify(label, z.name)}
	}
	return v.(pkgif.Zone), nil
}

// split 在最后一个 '.' 处拆分，拒绝空标签
func split(domain string) (prefix, label string, err error) {
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") ||
		strings.Contains(domain, "..") || strings.ContainsAny(domain, " \t@") {
		return "", "", &InvalidDomainError{Domain: domain}
	}
	i := strings.LastIndexByte(domain, '.')
	if i < 0 {
		return "", domain, nil
	}
	return domain[:i], domain[i+1:], nil
}

func qualify(label, zone string) string {
	if zone == "" {
		return label
	}
	return label + "." + zone
}

// Lookup 从根区域解析邮件域名到邮箱节点地址
func Lookup(ctx context.Context, root pkgif.Zone, domain string) (string, error) {
	return root.Resolve(ctx, domain)
}
