package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/common"
	"github.com/dmitrijs2005/codexnotes/internal/filex"
	"github.com/dmitrijs2005/codexnotes/internal/flagx"
	"github.com/spf13/pflag"
)

// Config holds runtime settings for the CodeX Notes desktop client.
//
// Fields:
//   - DataDir: directory holding the local database, link spool and logs.
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - CallTimeout: upper bound for one backend call.
//   - AuthURL / CallbackAddr / OAuthTimeout: browser login settings.
//   - BridgeAddr: loopback address of the UI event bridge; "" disables it.
//   - AppProtocol: custom URI scheme for join links.
//   - LogFile / LogLevel: rotating JSON log settings; LogFile "" means
//     <DataDir>/codexnotes.log.
//   - PushConcurrency: parallel mutations per sync pass.
//   - Reconciler: "overwrite" or "lww".
type Config struct {
	DataDir             string
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	CallTimeout         time.Duration
	AuthURL             string
	CallbackAddr        string
	OAuthTimeout        time.Duration
	BridgeAddr          string
	AppProtocol         string
	LogFile             string
	LogLevel            string
	PushConcurrency     int
	Reconciler          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = filex.DefaultDataDir()
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.CallTimeout = 10 * time.Second
	c.AuthURL = "http://127.0.0.1:8081/oauth/authorize"
	c.CallbackAddr = "127.0.0.1:0"
	c.OAuthTimeout = 5 * time.Minute
	c.BridgeAddr = "127.0.0.1:8765"
	c.AppProtocol = common.DefaultAppProtocol
	c.LogLevel = "info"
	c.PushConcurrency = 4
	c.Reconciler = "overwrite"
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "notes.db")
}

// LinkSpoolDir is where "open-url" drops join links for the running client.
func (c *Config) LinkSpoolDir() string {
	return filepath.Join(c.DataDir, "links")
}

// LogPath is LogFile, or codexnotes.log inside DataDir.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "codexnotes.log")
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.ServerEndpointAddr == "":
		return common.NewValidationError("server", "must not be empty")
	case c.OnlineCheckInterval <= 0:
		return common.NewValidationError("online-interval", "must be positive")
	case c.PushConcurrency < 1:
		return common.NewValidationError("push-concurrency", "must be at least 1")
	case c.AppProtocol == "":
		return common.NewValidationError("protocol", "must not be empty")
	case c.Reconciler != "overwrite" && c.Reconciler != "lww":
		return common.NewValidationError("reconciler", fmt.Sprintf("unknown value %q", c.Reconciler))
	}
	return nil
}

// Load constructs a Config, applies defaults, then overlays values from the
// JSON file named by --config (if any) and the flags set explicitly on fs.
// Later sources take precedence over earlier ones. fs must have been set up
// with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, flagx.ConfigPath(fs)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
