package config

import (
	"github.com/dmitrijs2005/codexnotes/internal/flagx"
	"github.com/dmitrijs2005/codexnotes/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration so they may be written as "3s" or integer nanoseconds. Zero
// values leave the corresponding Config field untouched.
type JsonConfig struct {
	DataDir             string         `json:"data_dir"`
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	CallTimeout         timex.Duration `json:"call_timeout"`
	AuthURL             string         `json:"auth_url"`
	CallbackAddr        string         `json:"callback_addr"`
	OAuthTimeout        timex.Duration `json:"oauth_timeout"`
	BridgeAddr          *string        `json:"bridge_addr"`
	AppProtocol         string         `json:"app_protocol"`
	LogFile             string         `json:"log_file"`
	LogLevel            string         `json:"log_level"`
	PushConcurrency     int            `json:"push_concurrency"`
	Reconciler          string         `json:"reconciler"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the file at path. An empty path loads nothing.
func parseJson(cfg *Config, path string) error {
	var jc JsonConfig
	if err := flagx.LoadJSON(path, &jc); err != nil {
		return err
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.AuthURL, jc.AuthURL)
	setString(&cfg.CallbackAddr, jc.CallbackAddr)
	setString(&cfg.AppProtocol, jc.AppProtocol)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.Reconciler, jc.Reconciler)

	// An explicit "" turns the bridge off.
	if jc.BridgeAddr != nil {
		cfg.BridgeAddr = *jc.BridgeAddr
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.CallTimeout.Duration != 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.OAuthTimeout.Duration != 0 {
		cfg.OAuthTimeout = jc.OAuthTimeout.Duration
	}
	if jc.PushConcurrency != 0 {
		cfg.PushConcurrency = jc.PushConcurrency
	}
	return nil
}
