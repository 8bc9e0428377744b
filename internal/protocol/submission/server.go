package submission

import (
	"context"
	"net"
	"strconv"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/integrity"
	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/core/listener"
	"github.com/dep2p/go-mailmesh/internal/core/metrics"
	"github.com/dep2p/go-mailmesh/internal/util/logger"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

var log = logger.Logger("submission")

// Options 服务端选项
type Options struct {
	Config config.ServerConfig

	// Host 对外公布的主机名
	Host string

	Acceptor pkgif.Acceptor

	// Keys 可选，用于为缺少标签的邮件签名
	Keys pkgif.KeyStore

	// Metrics 可选
	Metrics *metrics.Metrics
}

// Server 提交协议服务端
type Server struct {
	cfg      config.ServerConfig
	host     string
	acceptor pkgif.Acceptor
	keys     pkgif.KeyStore
	metrics  *metrics.Metrics
	ln       *listener.Server
}

// NewServer 创建服务端
func NewServer(opts Options) *Server {
	s := &Server{
		cfg:      opts.Config,
		host:     opts.Host,
		acceptor: opts.Acceptor,
		keys:     opts.Keys,
		metrics:  opts.Metrics,
	}
	s.ln = listener.New(s.handle, listener.Options{
		Name:        "submission",
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

// AdvertiseAddr 返回对外公布的 host:port
func (s *Server) AdvertiseAddr() string {
	port := s.ln.Port()
	if s.host == "" {
		if a := s.ln.Addr(); a != nil {
			return a.String()
		}
		return ""
	}
	return net.JoinHostPort(s.host, strconv.Itoa(port))
}

// Close 停止服务并关闭所有会话
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess := &session{
		srv: s,
		ctx: ctx,
		conn: lineconn.New(conn, lineconn.Options{
			MaxLineLength: s.cfg.MaxLineLength,
			ReadTimeout:   s.cfg.ReadTimeout.Duration(),
			WriteTimeout:  s.cfg.WriteTimeout.Duration(),
			Traffic:       s.metrics.Traffic(Protocol),
		}),
	}
	sess.serve()
}

// sign 为邮件补上完整性标签，没有共享密钥时保持原样
func (s *Server) sign(msg *types.Message) {
	if s.keys == nil {
		return
	}
	secret, err := s.keys.SharedSecret()
	if err != nil {
		return
	}
	tag, err := integrity.Sign(secret, msg)
	if err != nil {
		log.Warn("签名失败", "id", msg.ID, "err", err)
		return
	}
	msg.Hash = tag
}
