package retrieval

import (
	"context"
	"net"
	"time"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/core/listener"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
)

var log = logger.Logger("retrieval")

// Options 服务端选项
type Options struct {
	Config config.RetrievalConfig

	// ComponentID 握手时公布的组件标识，同时用于选择私钥
	ComponentID string

	Keys  pkgif.KeyStore
	Users pkgif.UserRegistry
	Store pkgif.MailStore

	// Metrics 可选
	Metrics *metrics.Metrics
}

// Server 邮箱访问协议服务端
type Server struct {
	cfg              config.RetrievalConfig
	componentID      string
	handshakeTimeout time.Duration

	keys    pkgif.KeyStore
	users   pkgif.UserRegistry
	store   pkgif.MailStore
	metrics *metrics.Metrics

	ln *listener.Server
}

// NewServer 创建服务端
func NewServer(opts Options) *Server {
	s := &Server{
		cfg:              opts.Config,
		componentID:      opts.ComponentID,
		handshakeTimeout: opts.Config.HandshakeTimeout.Duration(),
		keys:             opts.Keys,
		users:            opts.Users,
		store:            opts.Store,
		metrics:          opts.Metrics,
	}
	if s.handshakeTimeout <= 0 {
		s.handshakeTimeout = 15 * time.Second
	}
	s.ln = listener.New(s.handle, listener.Options{
		Name:        "retrieval",
		AcceptRate:  opts.Config.AcceptRate,
		AcceptBurst: opts.Config.AcceptBurst,
	})
	return s
}

// Listen 在配置的地址上监听
func (s *Server) Listen(ctx context.Context) error {
	return s.ln.Listen(ctx, s.cfg.ListenAddr)
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close 停止服务并关闭所有会话
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handle(_ context.Context, conn net.Conn) {
	lc := lineconn.New(conn, lineconn.Options{
		MaxLineLength: s.cfg.MaxLineLength,
		ReadTimeout:   s.cfg.ReadTimeout.Duration(),
		WriteTimeout:  s.cfg.WriteTimeout.Duration(),
		Traffic:       s.metrics.Traffic(Protocol),
	})
	newSession(s, lc).serve(conn.RemoteAddr().String())
}
