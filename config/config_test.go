package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, RoleTransfer, cfg.Node.Role)
	assert.Equal(t, 10, cfg.Dispatch.QueueCapacity)
	assert.Equal(t, "mailer", cfg.Dispatch.BounceSender)
	assert.Equal(t, 15*time.Second, cfg.Retrieval.HandshakeTimeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestFromJSON_KeepsDefaults(t *testing.T) {
	data := []byte(`{
		"node": {"role": "mailbox", "component_id": "mailbox-earth", "domain": "earth.planet"},
		"submission": {"listen_addr": ":16501", "read_timeout": "1m"},
		"users": {"users": {"trillian": "12345"}}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, RoleMailbox, cfg.Node.Role)
	assert.Equal(t, "127.0.0.1", cfg.Node.Host)
	assert.Equal(t, ":16501", cfg.Submission.ListenAddr)
	assert.Equal(t, time.Minute, cfg.Submission.ReadTimeout.Duration())
	assert.Equal(t, 30*time.Second, cfg.Submission.WriteTimeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"250ms"`)))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, time.Microsecond, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}

func TestValidate_Roles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"transfer defaults", func(*Config) {}, true},
		{"unknown role", func(c *Config) { c.Node.Role = "relay" }, false},
		{"mailbox without domain", func(c *Config) {
			c.Node.Role = RoleMailbox
			c.Node.ComponentID = "mailbox-earth"
			c.Users.Users = map[string]string{"a": "b"}
		}, false},
		{"mailbox", func(c *Config) {
			c.Node.Role = RoleMailbox
			c.Node.ComponentID = "mailbox-earth"
			c.Node.Domain = "earth.planet"
		}, true},
		{"zone without root", func(c *Config) {
			c.Node.Role = RoleNameserver
			c.Directory.Zone = "planet"
		}, false},
		{"root nameserver", func(c *Config) { c.Node.Role = RoleNameserver }, true},
		{"monitor without addr", func(c *Config) { c.Node.Role = RoleMonitor }, false},
		{"zero queue", func(c *Config) { c.Dispatch.QueueCapacity = 0 }, false},
		{"rate without burst", func(c *Config) {
			c.Submission.AcceptRate = 10
			c.Submission.AcceptBurst = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	cfg := NewConfig()
	cfg.Node.Role = RoleNameserver
	cfg.Directory.Zone = "planet"
	cfg.Directory.RootAddr = "127.0.0.1:16400"

	data, err := cfg.ToJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ns-planet.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
