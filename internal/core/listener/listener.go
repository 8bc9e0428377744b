// Package listener 提供通用的 TCP 接受循环
//
// 每个连接由独立的 goroutine 处理（连接数不设上限），
// 可选按速率限制接受新连接。关闭时先关闭监听套接字使接受循环退出，
// 再关闭所有活动连接以打断阻塞的读取，最后等待处理 goroutine 结束。
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
)

var log = logger.Logger("listener")

// ErrClosed 监听器已关闭
var ErrClosed = errors.New("listener: closed")

// Handler 处理一个已接受的连接；返回后连接被关闭
type Handler func(ctx context.Context, conn net.Conn)

// Options 监听器选项
type Options struct {
	// Name 日志中使用的名称
	Name string

	// AcceptRate 每秒接受连接数上限，0 表示不限
	AcceptRate  float64
	AcceptBurst int

	// KeepAlive TCP keep-alive 周期，0 使用系统默认
	KeepAlive time.Duration
}

// Server 接受循环
type Server struct {
	opts    Options
	handler Handler
	limiter *rate.Limiter

	ln     *net.TCPListener
	closed atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	loop   sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New 创建监听器
func New(handler Handler, opts Options) *Server {
	limit := rate.Inf
	if opts.AcceptRate > 0 {
		limit = rate.Limit(opts.AcceptRate)
	}
	burst := opts.AcceptBurst
	if burst <= 0 {
		burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:    opts,
		handler: handler,
		limiter: rate.NewLimiter(limit, burst),
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen 绑定地址并启动接受循环
func (s *Server) Listen(ctx context.Context, addr string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	lc := net.ListenConfig{KeepAlive: s.opts.KeepAlive}
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	tl, ok := l.(*net.TCPListener)
	if !ok {
		_ = l.Close()
		return fmt.Errorf("不是 TCP 监听器")
	}
	s.ln = tl

	s.loop.Add(1)
	go s.acceptLoop()
	log.Info("开始监听", "name", s.opts.Name, "addr", tl.Addr().String())
	return nil
}

// Addr 返回实际监听地址；未监听时为 nil
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Port 返回实际监听端口
func (s *Server) Port() int {
	if a, ok := s.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// ActiveConns 返回当前活动连接数
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.loop.Done()
	var backoff time.Duration
	for {
		conn, err := s.ln.AcceptTCP()
		if err != nil {
			if s.closed.Load() {
				return
			}
			// 临时错误退避重试
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff < time.Second {
				backoff *= 2
			}
			log.Warn("接受连接失败", "name", s.opts.Name, "err", err, "retry", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.limiter.Allow() {
			log.Warn("超出接受速率，拒绝连接", "name", s.opts.Name, "remote", conn.RemoteAddr().String())
			_ = conn.Close()
			continue
		}

		_ = conn.SetNoDelay(true)
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.group.Go(func() error {
			defer s.untrack(conn)
			s.handler(s.ctx, conn)
			return nil
		})
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

// Close 停止接受并关闭所有活动连接，等待处理 goroutine 退出
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	var err error
	if s.ln != nil {
		err = multierr.Append(err, s.ln.Close())
	}
	s.loop.Wait()

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	err = multierr.Append(err, s.group.Wait())
	log.Info("监听已关闭", "name", s.opts.Name)
	return err
}
