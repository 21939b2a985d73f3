package config

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/flagx"
	"github.com/spf13/pflag"
)

// RegisterFlags declares the client flags on fs. Defaults shown in --help
// come from LoadDefaults; only flags given explicitly override JSON values.
//
//	-c, --config string            JSON config file
//	-d, --data-dir string          local data directory
//	-a, --server string            backend gRPC address
//	-i, --online-interval duration reachability probe interval
//	    --call-timeout duration    per-call backend timeout
//	    --auth-url string          identity provider authorize URL
//	    --callback-addr string     loopback address for the login callback
//	    --oauth-timeout duration   how long to wait for the browser login
//	    --bridge-addr string       UI bridge address ("" disables it)
//	    --protocol string          custom URI scheme for join links
//	    --log-file string          log file path
//	    --log-level string         debug, info, warn or error
//	    --push-concurrency int     parallel mutations per sync pass
//	    --reconciler string        overwrite or lww
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	flagx.AddConfigFlag(fs)
	fs.StringP("data-dir", "d", d.DataDir, "local data directory")
	fs.StringP("server", "a", d.ServerEndpointAddr, "address and port of the backend server")
	fs.DurationP("online-interval", "i", d.OnlineCheckInterval, "online check interval")
	fs.Duration("call-timeout", d.CallTimeout, "per-call backend timeout")
	fs.String("auth-url", d.AuthURL, "identity provider authorize URL")
	fs.String("callback-addr", d.CallbackAddr, "loopback address for the login callback")
	fs.Duration("oauth-timeout", d.OAuthTimeout, "how long to wait for the browser login")
	fs.String("bridge-addr", d.BridgeAddr, `UI bridge address, "" disables it`)
	fs.String("protocol", d.AppProtocol, "custom URI scheme for join links")
	fs.String("log-file", "", "log file path (default <data-dir>/codexnotes.log)")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
	fs.Int("push-concurrency", d.PushConcurrency, "parallel mutations per sync pass")
	fs.String("reconciler", d.Reconciler, "conflict policy: overwrite or lww")
}

// parseFlags copies the flags set explicitly on fs into cfg.
func parseFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"data-dir":      &cfg.DataDir,
		"server":        &cfg.ServerEndpointAddr,
		"auth-url":      &cfg.AuthURL,
		"callback-addr": &cfg.CallbackAddr,
		"bridge-addr":   &cfg.BridgeAddr,
		"protocol":      &cfg.AppProtocol,
		"log-file":      &cfg.LogFile,
		"log-level":     &cfg.LogLevel,
		"reconciler":    &cfg.Reconciler,
	}
	durs := map[string]*time.Duration{
		"online-interval": &cfg.OnlineCheckInterval,
		"call-timeout":    &cfg.CallTimeout,
		"oauth-timeout":   &cfg.OAuthTimeout,
	}

	return flagx.Changed(fs, func(f *pflag.Flag) error {
		if p, ok := strs[f.Name]; ok {
			*p = f.Value.String()
			return nil
		}
		if p, ok := durs[f.Name]; ok {
			v, err := time.ParseDuration(f.Value.String())
			if err != nil {
				return err
			}
			*p = v
			return nil
		}
		if f.Name == "push-concurrency" {
			v, err := strconv.Atoi(f.Value.String())
			if err != nil {
				return err
			}
			cfg.PushConcurrency = v
		}
		return nil
	})
}
