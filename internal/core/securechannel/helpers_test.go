package securechannel

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/internal/core/lineconn"
)

const testComponent = "mailbox-earth-planet"

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func serverKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

type staticKeys map[string]*rsa.PublicKey

func (s staticKeys) PublicKey(id string) (*rsa.PublicKey, error) {
	if k, ok := s[id]; ok {
		return k, nil
	}
	return nil, errors.New("unknown component")
}

// tcpPair 返回一对回环 TCP 连接上的行连接
func tcpPair(t *testing.T) (client, server *lineconn.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	cc, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	sc, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		_ = cc.Close()
		_ = sc.Close()
	})
	return lineconn.New(cc, lineconn.Options{}), lineconn.New(sc, lineconn.Options{})
}

// setupChannelPair 完成一次握手，返回已确认的两端
func setupChannelPair(t *testing.T) (client, server *Channel) {
	t.Helper()
	key := serverKey(t)
	cc, sc := tcpPair(t)
	client, server = New(cc), New(sc)

	errc := make(chan error, 1)
	go func() {
		line, err := server.ReadLine()
		if err == nil && line != "startsecure" {
			err = errors.New("unexpected " + line)
		}
		if err == nil {
			err = server.Accept(testComponent, key)
		}
		errc <- err
	}()

	id, err := client.Initiate(staticKeys{testComponent: &key.PublicKey})
	require.NoError(t, err)
	require.Equal(t, testComponent, id)
	require.NoError(t, <-errc)
	return client, server
}
