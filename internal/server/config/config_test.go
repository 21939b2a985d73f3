package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeJSON(t *testing.T, v map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.json")
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 30*24*time.Hour, c.TokenValidityDuration)
	assert.NoError(t, c.Validate())
}

func TestLoad_Layering(t *testing.T) {
	path := writeJSON(t, map[string]any{
		"database_dsn":            "postgres://json",
		"secret_key":              "from-json",
		"token_validity_duration": "1h",
		"endpoint_addr_http":      "",
	})

	cfg, err := Load(newFlags(t, "-c", path, "-s", "from-flag", "--invite-cost", "4"))
	require.NoError(t, err)

	want := Config{}
	want.LoadDefaults()
	want.DatabaseDSN = "postgres://json"
	want.SecretKey = "from-flag"
	want.TokenValidityDuration = time.Hour
	want.EndpointAddrHTTP = ""
	want.InviteHashCost = 4

	assert.Empty(t, cmp.Diff(want, *cfg))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "none.json")))
	assert.Error(t, err, "missing file")

	bad := writeJSON(t, map[string]any{"token_validity_duration": "forever"})
	_, err = Load(newFlags(t, "--config", bad))
	assert.Error(t, err, "bad duration")

	_, err = Load(newFlags(t, "--secret="))
	assert.Error(t, err, "empty secret fails validation")
}

func TestParseFlags_OnlyExplicit(t *testing.T) {
	cfg := &Config{DatabaseDSN: "keep"}
	require.NoError(t, parseFlags(cfg, newFlags(t, "-a", ":9999", "-t", "2m")))

	assert.Equal(t, "keep", cfg.DatabaseDSN)
	assert.Equal(t, ":9999", cfg.EndpointAddrGRPC)
	assert.Equal(t, 2*time.Minute, cfg.TokenValidityDuration)
}
