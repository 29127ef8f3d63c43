// Package config loads tabswitch settings from an optional YAML file and
// TABSWITCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/martinwickman/tabswitch/internal/store"
)

// Config is the top-level application configuration.
type Config struct {
	StateDir   string      `mapstructure:"state_dir"`
	SocketPath string      `mapstructure:"socket_path"`
	Store      StoreConfig `mapstructure:"store"`
	Tmux       TmuxConfig  `mapstructure:"tmux"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"` // empty: a file inside StateDir
}

// TmuxConfig configures the tmux host.
type TmuxConfig struct {
	Binary string `mapstructure:"binary"`
}

// DefaultPath returns the config file location, respecting TABSWITCH_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("TABSWITCH_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tabswitch", "config.yaml")
}

// Load reads configuration from path (DefaultPath when empty). A missing file
// is not an error; env var overrides use the prefix TABSWITCH_. Non-empty
// entries in overrides (keyed like the file, e.g. "state_dir") win over both.
func Load(path string, overrides map[string]string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetDefault("state_dir", store.Dir())
	v.SetDefault("socket_path", "")
	v.SetDefault("store.driver", store.DriverJSON)
	v.SetDefault("store.path", "")
	v.SetDefault("tmux.binary", "tmux")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TABSWITCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	for key, val := range overrides {
		if val != "" {
			v.Set(key, val)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.SocketPath = expandHome(cfg.SocketPath)
	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.StateDir, "tabswitch.sock")
	}

	switch cfg.Store.Driver {
	case store.DriverJSON, store.DriverSQLite, store.DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported store.driver %q", cfg.Store.Driver)
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
