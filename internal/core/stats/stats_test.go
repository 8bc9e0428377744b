package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	server, address, ok := parseRecord("127.0.0.1:16501 zaphod@univer.ze\n")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:16501", server)
	assert.Equal(t, "zaphod@univer.ze", address)

	for _, bad := range []string{
		"",
		"127.0.0.1:16501",
		"127.0.0.1 zaphod@univer.ze",
		"127.0.0.1:port zaphod@univer.ze",
		"127.0.0.1:16501 zaphod",
		"127.0.0.1:16501 a@b c",
	} {
		_, _, ok := parseRecord(bad)
		assert.False(t, ok, "%q", bad)
	}
}

func TestCollector_Aggregates(t *testing.T) {
	c := NewCollector()
	assert.True(t, c.Add("h2:1 b@x"))
	assert.True(t, c.Add("h1:1 a@x"))
	assert.True(t, c.Add("h1:1 b@x"))
	assert.False(t, c.Add("garbage"))

	assert.Equal(t, []Count{{"h1:1", 2}, {"h2:1", 1}}, c.Servers())
	assert.Equal(t, []Count{{"a@x", 1}, {"b@x", 2}}, c.Addresses())
}

func TestEmitter_NoAddress(t *testing.T) {
	e := NewEmitter("")
	assert.NoError(t, e.Record("h:1", "a@b"))
	assert.NoError(t, e.Close())

	var nilEmitter *Emitter
	assert.NoError(t, nilEmitter.Record("h:1", "a@b"))
}

func TestEmitterToCollector(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Listen(context.Background(), "127.0.0.1:0"))
	defer c.Close()

	e := NewEmitter(c.Addr().String())
	defer e.Close()
	require.NoError(t, e.Record("127.0.0.1:16501", "zaphod@univer.ze"))
	require.NoError(t, e.Record("127.0.0.1:16501", "arthur@earth.planet"))

	require.Eventually(t, func() bool {
		return len(c.Addresses()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Count{{"127.0.0.1:16501", 2}}, c.Servers())

	t.Log("✅ 统计数据报经 UDP 到达收集端")
}
