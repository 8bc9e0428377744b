package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-mailmesh/internal/util/logger"
)

var log = logger.Logger("metrics")

// Server 通过 HTTP 暴露 /metrics
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Serve 在 addr 上暴露 m 的 Registry
func Serve(ctx context.Context, m *Metrics, addr string) (*Server, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{
		Registry:          m.Registry(),
		EnableOpenMetrics: true,
	}))
	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("指标服务退出", "err", err)
		}
	}()
	log.Info("指标服务已启动", "addr", ln.Addr().String())
	return s, nil
}

// Addr 返回监听地址
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close 关闭指标服务
func (s *Server) Close(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
