package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		mod       func(*Config)
		expectErr bool
	}{
		{
			name: "short forms",
			args: []string{"-a", "127.0.0.1:9090", "-i", "10s", "-d", "/tmp/cn"},
			mod: func(c *Config) {
				c.ServerEndpointAddr = "127.0.0.1:9090"
				c.OnlineCheckInterval = 10 * time.Second
				c.DataDir = "/tmp/cn"
			},
		},
		{
			name: "long forms",
			args: []string{"--push-concurrency=8", "--reconciler", "lww", "--bridge-addr=", "--oauth-timeout", "1m"},
			mod: func(c *Config) {
				c.PushConcurrency = 8
				c.Reconciler = "lww"
				c.BridgeAddr = ""
				c.OAuthTimeout = time.Minute
			},
		},
		{name: "malformed duration", args: []string{"-i", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			RegisterFlags(fs)
			err := fs.Parse(tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			var got, want Config
			got.LoadDefaults()
			want.LoadDefaults()
			tt.mod(&want)

			require.NoError(t, parseFlags(&got, fs))
			assert.Empty(t, cmp.Diff(want, got))
		})
	}
}

func TestParseFlags_DefaultsDoNotOverrideEarlierLayers(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-i", "7s"}))

	cfg := &Config{ServerEndpointAddr: "from-json:1"}
	require.NoError(t, parseFlags(cfg, fs))

	assert.Equal(t, "from-json:1", cfg.ServerEndpointAddr)
	assert.Equal(t, 7*time.Second, cfg.OnlineCheckInterval)
}
