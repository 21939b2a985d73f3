package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, common.DefaultAppProtocol, c.AppProtocol)
	assert.Equal(t, 4, c.PushConcurrency)
	assert.Equal(t, "overwrite", c.Reconciler)
	assert.NoError(t, c.Validate())
}

func TestLoad_NoArgsGivesDefaults(t *testing.T) {
	cfg, err := Load(parsedFlags(t))
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *cfg)
}

func TestConfig_DerivedPaths(t *testing.T) {
	c := Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "notes.db"), c.DatabasePath())
	assert.Equal(t, filepath.Join("/data", "links"), c.LinkSpoolDir())
	assert.Equal(t, filepath.Join("/data", "codexnotes.log"), c.LogPath())

	c.LogFile = "/var/log/cn.log"
	assert.Equal(t, "/var/log/cn.log", c.LogPath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{name: "empty server", mod: func(c *Config) { c.ServerEndpointAddr = "" }, field: "server"},
		{name: "zero interval", mod: func(c *Config) { c.OnlineCheckInterval = 0 }, field: "online-interval"},
		{name: "zero concurrency", mod: func(c *Config) { c.PushConcurrency = 0 }, field: "push-concurrency"},
		{name: "empty protocol", mod: func(c *Config) { c.AppProtocol = "" }, field: "protocol"},
		{name: "bad reconciler", mod: func(c *Config) { c.Reconciler = "merge" }, field: "reconciler"},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (go < 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mod(&c)

			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			var ve *common.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
