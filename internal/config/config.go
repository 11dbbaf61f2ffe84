// Package config resolves kitctl settings from defaults, an optional YAML
// config file, KITCTL_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, as in
// KITCTL_KIT_BINARY.
const EnvPrefix = "KITCTL"

// Config holds resolved kitctl settings.
type Config struct {
	// KitBinary is the kit executable to run.
	KitBinary string `mapstructure:"kit_binary"`
	// HistoryDB is the SQLite journal path. Empty disables history.
	HistoryDB string `mapstructure:"history_db"`
	// Registry is used by login and logout when none is given.
	Registry string `mapstructure:"registry"`
	Verbose  bool   `mapstructure:"verbose"`
	// Password is read from KITCTL_PASSWORD for login.
	Password string `mapstructure:"password"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"kit-binary": "kit_binary",
	"history-db": "history_db",
	"registry":   "registry",
	"verbose":    "verbose",
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		KitBinary: "kit",
		Registry:  "jozu.ml",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/kitctl/config.yaml, falling back to
// the OS user config directory. It returns "" if neither is known.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "kitctl", "config.yaml")
}

// Load resolves the configuration. An explicit path must exist; when path
// is empty the default location is read if present. Flags that were set on
// the command line override every other source.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("kit_binary", d.KitBinary)
	v.SetDefault("history_db", d.HistoryDB)
	v.SetDefault("registry", d.Registry)
	v.SetDefault("verbose", d.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("password"); err != nil {
		return Config{}, fmt.Errorf("bind password env: %w", err)
	}

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.HistoryDB = expandHome(cfg.HistoryDB)
	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return nil
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
