package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	network, addr, err := cfg.NetAddr()
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "149.154.167.50:443", addr)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := `
dc: 4
address: /ip6/2001:67c:4e8:f004::a/tcp/443
test_mode: true
temp_key_ttl: 24h
store:
  path: /var/lib/mtproto/keys.db
  password: hunter2
session:
  ping_interval: 1m
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.DC)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, 24*time.Hour, cfg.TempKeyTTL.Std())
	assert.Equal(t, time.Minute, cfg.Session.PingInterval.Std())
	assert.Equal(t, "hunter2", cfg.Store.Password)
	assert.Equal(t, "json", cfg.Log.Format)

	// untouched fields keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Session.CallTimeout.Std())
	assert.Equal(t, 5, cfg.Handshake.MaxRetries)

	network, addr, err := cfg.NetAddr()
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "[2001:67c:4e8:f004::a]:443", addr)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "session:\n  ping_interval: soon\n"},
		{"zero dc", "dc: 0\n"},
		{"not a multiaddr", "address: 149.154.167.50:443\n"},
		{"udp endpoint", "address: /ip4/127.0.0.1/udp/443\n"},
		{"store without password", "store:\n  path: keys.db\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"api port", "api:\n  port: 70000\n"},
		{"malformed yaml", "dc: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationMarshal(t *testing.T) {
	out, err := Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}
