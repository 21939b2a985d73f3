// Package flagx holds the small pflag helpers shared by the client and server
// configuration loaders: the --config switch and the JSON overlay it names.
package flagx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// ConfigFlagName is the long name of the JSON config file switch.
const ConfigFlagName = "config"

// AddConfigFlag registers -c/--config on fs.
func AddConfigFlag(fs *pflag.FlagSet) {
	if fs.Lookup(ConfigFlagName) != nil {
		return
	}
	fs.StringP(ConfigFlagName, "c", "", "path to JSON config file")
}

// ConfigPath returns the value of --config, or "" when the flag is missing
// or empty.
func ConfigPath(fs *pflag.FlagSet) string {
	path, err := fs.GetString(ConfigFlagName)
	if err != nil {
		return ""
	}
	return path
}

// LoadJSON unmarshals the file at path into v. An empty path is a no-op.
func LoadJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Changed calls apply for every flag set explicitly on the command line,
// stopping at the first error. Defaults never reach apply, so values from
// earlier layers survive.
func Changed(fs *pflag.FlagSet, apply func(f *pflag.Flag) error) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil || f.Name == ConfigFlagName {
			return
		}
		if e := apply(f); e != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, e)
		}
	})
	return err
}
