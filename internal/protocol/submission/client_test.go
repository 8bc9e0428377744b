package submission

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/pkg/types"
)

func testMessage() *types.Message {
	return &types.Message{
		From:    "arthur@earth.planet",
		To:      []string{"trillian@earth.planet", "zaphod@univer.ze"},
		Subject: "towel",
		Data:    "don't panic",
		Hash:    "dGFn",
	}
}

func dial(t *testing.T, srv *Server) *Client {
	t.Helper()
	c, err := Dial(context.Background(), srv.Addr().String(), ClientOptions{ReplyTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_SendReplaysTransaction(t *testing.T) {
	acc := &recordingAcceptor{}
	srv := startServer(t, acc, nil)
	c := dial(t, srv)

	msg := testMessage()
	require.NoError(t, c.Send(context.Background(), msg))
	require.NoError(t, c.Send(context.Background(), msg))
	assert.False(t, c.Closed())

	got := acc.received()
	require.Len(t, got, 2)
	assert.Equal(t, msg.To, got[0].To)
	assert.Equal(t, msg.Hash, got[0].Hash)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	require.NoError(t, c.Close())
	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.Send(context.Background(), msg), ErrClosed)

	t.Log("✅ 客户端在同一连接上回放多个事务")
}

func TestClient_RejectionClosesClient(t *testing.T) {
	srv := startServer(t, &recordingAcceptor{reject: assert.AnError}, nil)
	c := dial(t, srv)

	err := c.Send(context.Background(), testMessage())
	require.ErrorIs(t, err, ErrRejected)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "to", rej.Command)
	assert.True(t, c.Closed())
}

func TestClient_ContextCancelWhileBlocked(t *testing.T) {
	acc := &recordingAcceptor{block: make(chan struct{})}
	srv := startServer(t, acc, nil)
	c := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := c.Send(ctx, testMessage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, c.Closed())
	close(acc.block)
}

func TestClient_BadGreeting(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = c.Write([]byte("ok DMAP2.0\n"))
		time.Sleep(100 * time.Millisecond)
		_ = c.Close()
	}()

	_, err = Dial(context.Background(), ln.Addr().String(), ClientOptions{ReplyTimeout: time.Second})
	assert.ErrorIs(t, err, ErrBadGreeting)
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, ClientOptions{})
	assert.Error(t, err)
}
