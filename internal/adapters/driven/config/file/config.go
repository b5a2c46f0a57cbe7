// Package file loads the harvester configuration from a TOML file.
// The core never reads configuration implicitly; this package exists for
// the CLI layer, which resolves the file once and passes explicit config
// structs down.
package file

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk harvester configuration.
type Config struct {
	// CacheDir is the base directory for per-origin record caches.
	CacheDir string `toml:"cache_dir"`

	// DataDir is the directory for the metadata database.
	DataDir string `toml:"data_dir"`

	StackExchange StackExchangeConfig `toml:"stackexchange"`
	GitBlame      GitBlameConfig      `toml:"gitblame"`
}

// StackExchangeConfig holds defaults for the StackExchange connector.
type StackExchangeConfig struct {
	Site         string `toml:"site"`
	Tagged       string `toml:"tagged"`
	Token        string `toml:"token"`
	MaxQuestions int    `toml:"max_questions"`
}

// GitBlameConfig holds defaults for the git blame connector.
type GitBlameConfig struct {
	URI     string `toml:"uri"`
	GitPath string `toml:"git_path"`
	Origin  string `toml:"origin"`
	Rev     string `toml:"rev"`
}

// DefaultPath returns the default configuration file location,
// ~/.perceval/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".perceval", "config.toml"), nil
}

// Load reads the configuration at path. An empty path means the default
// location; a missing file yields a zero Config and no error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
