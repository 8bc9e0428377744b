package listener

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(line)); err != nil {
			return
		}
	}
}

func TestServer_ServesConnections(t *testing.T) {
	s := New(echoHandler, Options{Name: "echo"})
	require.NoError(t, s.Listen(context.Background(), "127.0.0.1:0"))
	defer s.Close()
	require.NotZero(t, s.Port())

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", s.Addr().String())
		require.NoError(t, err)
		_, err = conn.Write([]byte("ping\n"))
		require.NoError(t, err)
		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "ping\n", line)
		conn.Close()
	}
}

func TestServer_CloseInterruptsBlockedReads(t *testing.T) {
	var finished atomic.Int32
	s := New(func(ctx context.Context, conn net.Conn) {
		echoHandler(ctx, conn)
		finished.Add(1)
	}, Options{Name: "blocked"})
	require.NoError(t, s.Listen(context.Background(), "127.0.0.1:0"))

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ActiveConns() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, int32(1), finished.Load())
	assert.Zero(t, s.ActiveConns())

	// 关闭后不可再次监听
	assert.ErrorIs(t, s.Listen(context.Background(), "127.0.0.1:0"), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestServer_AcceptRate(t *testing.T) {
	var served atomic.Int32
	s := New(func(_ context.Context, conn net.Conn) {
		served.Add(1)
		_, _ = conn.Write([]byte("hi\n"))
	}, Options{Name: "limited", AcceptRate: 0.001, AcceptBurst: 1})
	require.NoError(t, s.Listen(context.Background(), "127.0.0.1:0"))
	defer s.Close()

	read := func() error {
		conn, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			return err
		}
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, err = bufio.NewReader(conn).ReadString('\n')
		return err
	}

	require.NoError(t, read())
	assert.Error(t, read(), "second connection should be rejected")
	assert.Equal(t, int32(1), served.Load())
}
