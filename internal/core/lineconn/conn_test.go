package lineconn

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T, opts Options) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return New(a, opts), New(b, opts)
}

func TestConn_RoundTrip(t *testing.T) {
	client, server := pipePair(t, Options{})

	go func() {
		_ = client.WriteLine("begin")
		_ = client.WriteLine("subject hello world")
	}()

	line, err := server.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "begin", line)

	line, err = server.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "subject hello world", line)
}

func TestConn_StripsCR(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() { _, _ = a.Write([]byte("list\r\n")) }()

	line, err := New(b, Options{}).ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "list", line)
}

func TestConn_LineTooLong(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() { _, _ = a.Write([]byte(strings.Repeat("x", 200) + "\n")) }()

	_, err := New(b, Options{MaxLineLength: 64}).ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestConn_ReadTimeout(t *testing.T) {
	_, server := pipePair(t, Options{ReadTimeout: 20 * time.Millisecond})

	_, err := server.ReadLine()
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}
