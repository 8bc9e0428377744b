package submission

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailmesh/internal/core/integrity"
	"github.com/dep2p/go-mailmesh/internal/core/keystore"
)

func TestSession_FullTransaction(t *testing.T) {
	acc := &recordingAcceptor{}
	srv := startServer(t, acc, nil)
	conn := rawConn(t, srv)

	replies := converse(t, conn,
		"begin",
		"from a@x",
		"to b@x, c@y",
		"subject hi there",
		"data hello  world",
		"hash H",
		"send",
	)
	assert.Equal(t, []string{"ok", "ok", "ok", "ok 2", "ok", "ok", "ok"}, replies)

	got := acc.received()
	require.Len(t, got, 1)
	msg := got[0]
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "a@x", msg.From)
	assert.Equal(t, []string{"b@x", "c@y"}, msg.To)
	assert.Equal(t, "hi there", msg.Subject)
	assert.Equal(t, "hello  world", msg.Data)
	assert.Equal(t, "H", msg.Hash)

	t.Log("✅ 完整事务被受理")
}

func TestSession_StateErrors(t *testing.T) {
	srv := startServer(t, &recordingAcceptor{}, nil)
	conn := rawConn(t, srv)

	replies := converse(t, conn,
		"from a@x",
		"send",
		"begin",
		"begin",
		"bogus",
	)
	for _, r := range replies[:2] {
		assert.Equal(t, "error "+deniedNoTx, r)
	}
	assert.Equal(t, "ok", replies[2])
	assert.Equal(t, "error transaction already open", replies[3])
	assert.Equal(t, "error unknown command", replies[4])
}

func TestSession_ValidationErrors(t *testing.T) {
	srv := startServer(t, &recordingAcceptor{}, nil)
	conn := rawConn(t, srv)

	replies := converse(t, conn,
		"begin",
		"from nobody",
		"from a@x extra",
		"to ",
		"to b@x,broken",
		"send",
	)
	assert.Equal(t, "ok", replies[0])
	assert.Equal(t, "error invalid sender address", replies[1])
	assert.Equal(t, "error invalid syntax", replies[2])
	assert.Equal(t, "error no recipients", replies[3])
	assert.Equal(t, "error invalid recipient address", replies[4])
	assert.Equal(t, "error missing from,to,subject,data", replies[5])
}

func TestSession_AcceptorRejectsRecipients(t *testing.T) {
	srv := startServer(t, &recordingAcceptor{reject: errors.New("unknown user b")}, nil)
	conn := rawConn(t, srv)

	replies := converse(t, conn, "begin", "to b@x")
	assert.Equal(t, "error unknown user b", replies[1])
}

func TestSession_TransactionResetsAfterSend(t *testing.T) {
	acc := &recordingAcceptor{}
	srv := startServer(t, acc, nil)
	conn := rawConn(t, srv)

	tx := []string{"begin", "from a@x", "to b@x", "subject s", "data d", "send"}
	converse(t, conn, tx...)
	replies := converse(t, conn, "subject again", "begin", "send")
	assert.True(t, strings.HasPrefix(replies[0], "error"))
	assert.Equal(t, "ok", replies[1])
	assert.Equal(t, "error missing from,to,subject,data", replies[2])
	assert.Len(t, acc.received(), 1)
}

func TestSession_SignsUnhashedMessages(t *testing.T) {
	secret := []byte("shared-secret")
	acc := &recordingAcceptor{}
	srv := startServer(t, acc, keystore.NewMemory(secret))
	conn := rawConn(t, srv)

	converse(t, conn, "begin", "from a@x", "to b@x", "subject s", "data d", "send")
	got := acc.received()
	require.Len(t, got, 1)
	require.NotEmpty(t, got[0].Hash)
	assert.NoError(t, integrity.Verify(secret, got[0]))
}

func TestSession_EmptySubjectAndData(t *testing.T) {
	acc := &recordingAcceptor{}
	srv := startServer(t, acc, nil)
	conn := rawConn(t, srv)

	replies := converse(t, conn, "begin", "from a@x", "to b@x", "subject", "data", "send")
	assert.Equal(t, "ok", replies[5])
	require.Len(t, acc.received(), 1)
	assert.Empty(t, acc.received()[0].Subject)
}

func TestSession_Quit(t *testing.T) {
	srv := startServer(t, &recordingAcceptor{}, nil)
	conn := rawConn(t, srv)

	assert.Equal(t, []string{"ok", "ok bye"}, converse(t, conn, "begin", "quit"))
	_, err := conn.ReadLine()
	assert.Error(t, err)
}
