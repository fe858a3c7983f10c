package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pbxkit/pbxkit-go/pkg/manager"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pbxkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
address: pbx.example.com:5038
username: admin
secret: hunter2
use_challenge: true
events: "call,system"
action_timeout: 10s
connect_timeout: 2s
reconnect: false
wire_log: /var/log/pbxkit/capture.cbor
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pbx.example.com:5038", cfg.Address)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, "hunter2", cfg.Secret)
	assert.True(t, cfg.UseChallenge)
	assert.Equal(t, "call,system", cfg.Events)
	assert.Equal(t, Duration(10*time.Second), cfg.ActionTimeout)
	assert.Equal(t, Duration(2*time.Second), cfg.ConnectTimeout)
	assert.False(t, cfg.Reconnect)
	assert.Equal(t, "/var/log/pbxkit/capture.cbor", cfg.WireLog)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
address: localhost:5038
username: admin
secret: hunter2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "on", cfg.Events)
	assert.Equal(t, Duration(manager.DefaultActionTimeout), cfg.ActionTimeout)
	assert.Equal(t, Duration(manager.DefaultConnectTimeout), cfg.ConnectTimeout)
	assert.True(t, cfg.Reconnect)
	assert.Empty(t, cfg.WireLog)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "missing address",
			content: "username: admin\n",
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing username",
			content: "address: localhost:5038\n",
			wantErr: ErrMissingUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "address: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
address: localhost:5038
username: admin
action_timeout: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))

	var d Duration
	require.NoError(t, yaml.Unmarshal(out, &d))
	assert.Equal(t, Duration(90*time.Second), d)
}

func TestManagerConfig(t *testing.T) {
	cfg := Config{
		Address:        "localhost:5038",
		Username:       "admin",
		Secret:         "hunter2",
		UseChallenge:   true,
		Events:         "off",
		ActionTimeout:  Duration(10 * time.Second),
		ConnectTimeout: Duration(2 * time.Second),
	}

	mc := cfg.ManagerConfig()
	assert.Equal(t, "localhost:5038", mc.Address)
	assert.Equal(t, "admin", mc.Username)
	assert.Equal(t, "hunter2", mc.Secret)
	assert.True(t, mc.UseChallenge)
	assert.Equal(t, "off", mc.Events)
	assert.Equal(t, 10*time.Second, mc.ActionTimeout)
	assert.Equal(t, 2*time.Second, mc.ConnectTimeout)
}
