// Package config loads flowchart configuration from a TOML file.
//
// Every field has a working default so the zero config is usable; the file
// and flags only override. Lookup order for the file itself is an explicit
// --config path, then $FLOWCHART_CONFIG, then ~/.config/flowchart/config.toml.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ledgerflow/flowchart/pkg/errors"
	"github.com/ledgerflow/flowchart/pkg/flow"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "FLOWCHART_CONFIG"

// Config is the top-level flowchart configuration.
type Config struct {
	// ExcludePercent is the label-suppression threshold for deep nodes.
	ExcludePercent float64 `toml:"exclude_percent"`

	// NodeWidth and NodePadding are layout hints forwarded to chart consumers.
	NodeWidth   float64 `toml:"node_width"`
	NodePadding float64 `toml:"node_padding"`

	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig selects and configures the stage cache backend.
type CacheConfig struct {
	// Dir is the file cache directory. Empty means the default under
	// the user cache dir.
	Dir string `toml:"dir"`

	// RedisAddr enables the Redis backend when set (host:port).
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// Disabled turns off caching entirely.
	Disabled bool `toml:"disabled"`
}

// StoreConfig configures the chart store.
type StoreConfig struct {
	// MongoURI enables chart persistence when set.
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ExcludePercent: flow.DefaultExcludePercent,
		NodeWidth:      18,
		NodePadding:    14,
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// Load reads configuration from path. An empty path falls back to
// $FLOWCHART_CONFIG and then the default location; a missing file at a
// fallback location is not an error, but an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = defaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q in %s", undec[0].String(), path)
	}
	if cfg.ExcludePercent < 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "exclude_percent must not be negative")
	}
	return cfg, nil
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "flowchart", "config.toml")
}
