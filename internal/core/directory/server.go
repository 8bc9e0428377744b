package directory

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-mailmesh/internal/core/listener"
)

// Server 通过 RPC 暴露一个区域
type Server struct {
	zone    *Zone
	pool    *Pool
	timeout time.Duration
	ln      *listener.Server
}

// ServerOptions 服务端选项
type ServerOptions struct {
	// CallTimeout 单次调用（含向下委派）的时限
	CallTimeout time.Duration

	// KeepAlive 会话保活周期
	KeepAlive time.Duration
}

// NewServer 创建区域服务端；pool 用于把收到的区域句柄还原为 RemoteZone
func NewServer(zone *Zone, pool *Pool, opts ServerOptions) *Server {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	s := &Server{zone: zone, pool: pool, timeout: opts.CallTimeout}
	cfg := muxConfig(opts.KeepAlive)
	s.ln = listener.New(func(ctx context.Context, conn net.Conn) {
		s.serveConn(ctx, conn, cfg)
	}, listener.Options{Name: "directory"})
	return s
}

// Listen 开始监听
func (s *Server) Listen(ctx context.Context, addr string) error {
	return s.ln.Listen(ctx, addr)
}

// Addr 返回实际监听地址
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Port 返回实际监听端口
func (s *Server) Port() int {
	return s.ln.Port()
}

// Close 停止服务
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, cfg *yamux.Config) {
	sess, err := yamux.Server(conn, cfg)
	if err != nil {
		log.Warn("建立多路复用会话失败", "remote", conn.RemoteAddr().String(), "err", err)
		return
	}
	defer sess.Close()

	for {
		stream, err := sess.AcceptStream()
		if err != nil {
			if !errors.Is(err, yamux.ErrSessionShutdown) {
				log.Debug("会话结束", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}
		go s.serveStream(ctx, stream)
	}
}

func (s *Server) serveStream(ctx context.Context, stream *yamux.Stream) {
	defer stream.Close()
	_ = stream.SetDeadline(time.Now().Add(s.timeout))

	payload, err := readFrame(bufio.NewReader(stream))
	if err != nil {
		log.Debug("读取请求失败", "err", err)
		return
	}
	var req request
	if err := req.unmarshal(payload); err != nil {
		log.Debug("请求格式错误", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp := s.handle(ctx, &req)

	if err := writeFrame(stream, resp.marshal()); err != nil {
		log.Debug("写回响应失败", "method", req.Method, "err", err)
	}
}

func (s *Server) handle(ctx context.Context, req *request) *response {
	log.Debug("处理目录请求", "method", req.Method, "name", req.Name, "addr", req.Addr)

	switch req.Method {
	case methodRegisterZone:
		if req.Addr == "" {
			return errorResponse(ErrNotAddressable)
		}
		return errorResponse(s.zone.RegisterZone(ctx, req.Name, s.pool.Zone(req.Addr)))

	case methodRegisterMailbox:
		return errorResponse(s.zone.RegisterMailbox(ctx, req.Name, req.Addr))

	case methodGetZone:
		child, err := s.zone.GetZone(ctx, req.Name)
		if err != nil {
			return errorResponse(err)
		}
		if child.Addr() == "" {
			return errorResponse(ErrNotAddressable)
		}
		return &response{Status: statusOK, Addr: child.Addr()}

	case methodResolve:
		addr, err := s.zone.Resolve(ctx, req.Name)
		if err != nil {
			return errorResponse(err)
		}
		return &response{Status: statusOK, Addr: addr}
	}
	return &response{Status: statusInternal, Detail: "unknown method " + req.Method.String()}
}
