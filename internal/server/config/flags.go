package config

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/codexnotes/internal/flagx"
	"github.com/spf13/pflag"
)

// RegisterFlags declares the server flags on fs.
//
//	-c, --config string        JSON config file
//	-a, --grpc-addr string     gRPC bind address (e.g., ":50051")
//	    --http-addr string     identity provider bind address ("" disables it)
//	-d, --dsn string           PostgreSQL DSN
//	-s, --secret string        JWT HMAC secret key
//	-t, --token-ttl duration   identity token validity
//	    --invite-cost int      bcrypt cost for invitation tokens
//	    --log-level string     debug, info, warn or error
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	flagx.AddConfigFlag(fs)
	fs.StringP("grpc-addr", "a", d.EndpointAddrGRPC, "address and port to run the gRPC server")
	fs.String("http-addr", d.EndpointAddrHTTP, `address of the development identity provider, "" disables it`)
	fs.StringP("dsn", "d", d.DatabaseDSN, "database DSN")
	fs.StringP("secret", "s", d.SecretKey, "secret key")
	fs.DurationP("token-ttl", "t", d.TokenValidityDuration, "identity token validity")
	fs.Int("invite-cost", d.InviteHashCost, "bcrypt cost for invitation tokens")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
}

// parseFlags copies the flags set explicitly on fs into config.
func parseFlags(config *Config, fs *pflag.FlagSet) error {
	return flagx.Changed(fs, func(f *pflag.Flag) error {
		v := f.Value.String()
		switch f.Name {
		case "grpc-addr":
			config.EndpointAddrGRPC = v
		case "http-addr":
			config.EndpointAddrHTTP = v
		case "dsn":
			config.DatabaseDSN = v
		case "secret":
			config.SecretKey = v
		case "log-level":
			config.LogLevel = v
		case "token-ttl":
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			config.TokenValidityDuration = d
		case "invite-cost":
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			config.InviteHashCost = n
		}
		return nil
	})
}
