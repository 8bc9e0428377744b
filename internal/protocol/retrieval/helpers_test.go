package retrieval

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/config"
	"github.com/dep2p/go-mailmesh/internal/core/keystore"
	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
	"github.com/dep2p/go-mailmesh/internal/core/mailbox"
	"github.com/dep2p/go-mailmesh/internal/core/userstore"
)

const testComponent = "mailbox-earth-planet"

var testSecret = []byte("shared-hmac-secret")

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func serverKey() *rsa.PrivateKey {
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

type fixture struct {
	srv   *Server
	store *mailbox.Store

	// clientKeys 客户端一侧只持有公钥与共享密钥
	clientKeys *keystore.MemoryStore
}

func setupServer(t *testing.T) *fixture {
	t.Helper()
	keys := keystore.NewMemory(testSecret)
	require.NoError(t, keys.AddKeyPair(testComponent, serverKey()))

	users, err := userstore.New(map[string]string{"arthur": "towel", "trillian": "heart"})
	require.NoError(t, err)
	store := mailbox.NewStore(users.Users())

	cfg := config.DefaultRetrievalConfig()
	cfg.ReadTimeout = config.Duration(5 * time.Second)
	cfg.WriteTimeout = config.Duration(5 * time.Second)
	cfg.HandshakeTimeout = config.Duration(2 * time.Second)

	srv := NewServer(Options{
		Config:      cfg,
		ComponentID: testComponent,
		Keys:        keys,
		Users:       users,
		Store:       store,
	})
	require.NoError(t, srv.Listen(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })

	clientKeys := keystore.NewMemory(testSecret)
	clientKeys.AddPublicKey(testComponent, &serverKey().PublicKey)
	return &fixture{srv: srv, store: store, clientKeys: clientKeys}
}

func (f *fixture) dial(t *testing.T) *Client {
	t.Helper()
	c, err := Dial(context.Background(), f.srv.Addr().String(), ClientOptions{ReplyTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// secureClient 返回已握手并以 user 登录的客户端
func (f *fixture) secureClient(t *testing.T, user, password string) *Client {
	t.Helper()
	ctx := context.Background()
	c := f.dial(t)
	id, err := c.StartSecure(ctx, f.clientKeys)
	require.NoError(t, err)
	require.Equal(t, testComponent, id)
	if user != "" {
		require.NoError(t, c.Login(ctx, user, password))
	}
	return c
}

// rawConn 明文行连接，已读取问候
func (f *fixture) rawConn(t *testing.T) *lineconn.Conn {
	t.Helper()
	c, err := net.Dial("tcp", f.srv.Addr().String())
	require.NoError(t, err)
	conn := lineconn.New(c, lineconn.Options{ReadTimeout: 5 * time.Second})
	t.Cleanup(func() { _ = conn.Close() })
	greeting, err := conn.ReadLine()
	require.NoError(t, err)
	require.Equal(t, Greeting, greeting)
	return conn
}
