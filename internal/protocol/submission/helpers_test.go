package submission

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	pkgif "github.com/dep2p/go-mailmesh/pkg/interfaces"
	"github.com/dep2p/go-mailmesh/pkg/types"
)

// recordingAcceptor 记录收到的邮件，count 为 Recipients 的返回值
type recordingAcceptor struct {
	mu       sync.Mutex
	messages []*types.Message
	reject   error
	block    chan struct{}
}

func (a *recordingAcceptor) Recipients(to []string) (int, error) {
	if a.reject != nil {
		return 0, a.reject
	}
	return len(to), nil
}

func (a *recordingAcceptor) Accept(ctx context.Context, msg *types.Message) error {
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return errors.New("queue full")
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
	return nil
}

func (a *recordingAcceptor) received() []*types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*types.Message(nil), a.messages...)
}

var _ pkgif.Acceptor = (*recordingAcceptor)(nil)

func testServerConfig() config.ServerConfig {
	cfg := config.DefaultSubmissionConfig().ServerConfig
	cfg.ReadTimeout = config.Duration(5 * time.Second)
	cfg.WriteTimeout = config.Duration(5 * time.Second)
	return cfg
}

func startServer(t *testing.T, acceptor pkgif.Acceptor, keys pkgif.KeyStore) *Server {
	t.Helper()
	srv := NewServer(Options{
		Config:   testServerConfig(),
		Host:     "127.0.0.1",
		Acceptor: acceptor,
		Keys:     keys,
	})
	require.NoError(t, srv.Listen(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// rawConn 直接以行协议对话，已读取问候
func rawConn(t *testing.T, srv *Server) *lineconn.Conn {
	t.Helper()
	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	conn := lineconn.New(c, lineconn.Options{ReadTimeout: 5 * time.Second})
	t.Cleanup(func() { _ = conn.Close() })

	greeting, err := conn.ReadLine()
	require.NoError(t, err)
	require.Equal(t, Greeting, greeting)
	return conn
}

// converse 依次发送请求并收集应答
func converse(t *testing.T, conn *lineconn.Conn, lines ...string) []string {
	t.Helper()
	replies := make([]string, 0, len(lines))
	for _, l := range lines {
		require.NoError(t, conn.WriteLine(l))
		r, err := conn.ReadLine()
		require.NoError(t, err, "after %q", l)
		replies = append(replies, r)
	}
	return replies
}
