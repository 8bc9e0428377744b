package directory

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/yamux"
	"go.uber.org/multierr"
	"golang.org/x/net/proxy"
	"golang.org/x/sync/singleflight"

	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

// PoolOptions 连接池选项
type PoolOptions struct {
	DialTimeout time.Duration
	CallTimeout time.Duration
	KeepAlive   time.Duration

	// Dialer 可选，nil 时直连
	Dialer proxy.ContextDialer
}

// Pool 按地址复用到远端区域的多路复用会话
type Pool struct {
	opts PoolOptions
	cfg  *yamux.Config

	// dials 合并同一地址上并发的拨号，拨号期间不持有 mu
	dials singleflight.Group

	mu       sync.Mutex
	sessions map[string]*yamux.Session
	closed   bool
}

// NewPool 创建连接池
func NewPool(opts PoolOptions) *Pool {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{Timeout: opts.DialTimeout}
	}
	return &Pool{
		opts:     opts,
		cfg:      muxConfig(opts.KeepAlive),
		sessions: make(map[string]*yamux.Session),
	}
}

// Zone 返回 addr 处区域的句柄
func (p *Pool) Zone(addr string) *RemoteZone {
	return &RemoteZone{addr: addr, pool: p}
}

// Close 关闭所有会话
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var err error
	for addr, s := range p.sessions {
		err = multierr.Append(err, s.Close())
		delete(p.sessions, addr)
	}
	return err
}

func (p *Pool) session(ctx context.Context, addr string) (*yamux.Session, error) {
	if s, err := p.cached(addr); s != nil || err != nil {
		return s, err
	}

	ch := p.dials.DoChan(addr, func() (interface{}, error) {
		if s, err := p.cached(addr); s != nil || err != nil {
			return s, err
		}
		// 拨号由所有等待者共享，不随首个调用者取消
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.DialTimeout)
		defer cancel()
		return p.dial(dctx, addr)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*yamux.Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cached 返回 addr 上仍可用的会话，没有时两个返回值都为 nil
func (p *Pool) cached(addr string) (*yamux.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if s, ok := p.sessions[addr]; ok && !s.IsClosed() {
		return s, nil
	}
	return nil, nil
}

func (p *Pool) dial(ctx context.Context, addr string) (*yamux.Session, error) {
	conn, err := p.opts.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	s, err := yamux.Client(conn, p.cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = s.Close()
		return nil, ErrClosed
	}
	p.sessions[addr] = s
	return s, nil
}

func (p *Pool) drop(addr string, s *yamux.Session) {
	p.mu.Lock()
	if cur, ok := p.sessions[addr]; ok && cur == s {
		delete(p.sessions, addr)
	}
	p.mu.Unlock()
	_ = s.Close()
}

// call 在新流上完成一次请求-响应
func (p *Pool) call(ctx context.Context, addr string, req *request) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	sess, err := p.session(ctx, addr)
	if err != nil {
		return nil, err
	}
	stream, err := sess.OpenStream()
	if err != nil {
		// 会话已失效，重建一次
		p.drop(addr, sess)
		if sess, err = p.session(ctx, addr); err != nil {
			return nil, err
		}
		if stream, err = sess.OpenStream(); err != nil {
			p.drop(addr, sess)
			return nil, err
		}
	}
	defer stream.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	if err := writeFrame(stream, req.marshal()); err != nil {
		return nil, err
	}
	payload, err := readFrame(bufio.NewReader(stream))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	var resp response
	if err := resp.unmarshal(payload); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoteZone 远端区域句柄
type RemoteZone struct {
	addr string
	pool *Pool
}

// 确保实现接口
var _ pkgif.Zone = (*RemoteZone)(nil)

// Addr 实现 Zone
func (r *RemoteZone) Addr() string {
	return r.addr
}

func (r *RemoteZone) invoke(ctx context.Context, req *request) (string, error) {
	resp, err := r.pool.call(ctx, r.addr, req)
	if err != nil {
		return "", err
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	return resp.Addr, nil
}

// RegisterZone 实现 Zone，zone 以其地址传递
func (r *RemoteZone) RegisterZone(ctx context.Context, domain string, zone pkgif.Zone) error {
	if zone.Addr() == "" {
		return ErrNotAddressable
	}
	_, err := r.invoke(ctx, &request{Method: methodRegisterZone, Name: domain, Addr: zone.Addr()})
	return err
}

// RegisterMailbox 实现 Zone
func (r *RemoteZone) RegisterMailbox(ctx context.Context, domain, addr string) error {
	_, err := r.invoke(ctx, &request{Method: methodRegisterMailbox, Name: domain, Addr: addr})
	return err
}

// GetZone 实现 Zone
func (r *RemoteZone) GetZone(ctx context.Context, label string) (pkgif.Zone, error) {
	addr, err := r.invoke(ctx, &request{Method: methodGetZone, Name: label})
	if err != nil {
		return nil, err
	}
	return r.pool.Zone(addr), nil
}

// Resolve 实现 Zone
func (r *RemoteZone) Resolve(ctx context.Context, name string) (string, error) {
	return r.invoke(ctx, &request{Method: methodResolve, Name: name})
}
