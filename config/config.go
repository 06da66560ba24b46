package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

//go:embed default_config.toml
var defaultConfig []byte

// TargetInfo is a single [[target]] table as it is written in the config file. The values are validated and converted
// by the target package.
type TargetInfo struct {
	Name     string `toml:"name"`
	Entry    string `toml:"entry"`
	Format   string `toml:"format"`
	Filename string `toml:"filename"`
	Mode     string `toml:"mode"`
	// Platform optionally overrides the platform that is derived from the format.
	Platform string `toml:"platform"`
}

type Config struct {
	Bundler struct {
		Debug bool `toml:"debug-log"`
		// Root is the project root that entry points are resolved from. Relative roots are resolved from the directory
		// the config file is in.
		Root string `toml:"root"`
		// OutDir is the directory artifacts are written to, relative to Root.
		OutDir string `toml:"out-dir"`
		// Jobs limits the amount of targets built in parallel. Zero or less uses one job per CPU.
		Jobs int `toml:"jobs"`
		// Lock is the path of the lock file, relative to Root.
		Lock string `toml:"lock"`
	} `toml:"bundler"`

	Plugin struct {
		// Exports lists the names every entry point must export.
		Exports []string `toml:"exports"`
	} `toml:"plugin"`

	Target []TargetInfo `toml:"target"`
}

// RootDir returns the absolute project root.
func (c *Config) RootDir() string {
	return c.Bundler.Root
}

// OutDir returns the absolute output directory.
func (c *Config) OutDir() string {
	if filepath.IsAbs(c.Bundler.OutDir) {
		return c.Bundler.OutDir
	}
	return filepath.Join(c.Bundler.Root, c.Bundler.OutDir)
}

// LockPath returns the absolute path of the lock file.
func (c *Config) LockPath() string {
	if filepath.IsAbs(c.Bundler.Lock) {
		return c.Bundler.Lock
	}
	return filepath.Join(c.Bundler.Root, c.Bundler.Lock)
}

// GetOrMakeConfig tries to load the config file, and if it does not exist the default config file will be created and
// loaded.
func GetOrMakeConfig(log *zerolog.Logger, path string) (*Config, error) {
	cfgData, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Msgf("Config file does not exist, creating default config...")
		err = os.WriteFile(path, defaultConfig, 0o644)
		if err != nil {
			return nil, fmt.Errorf("error trying to create %s: %w", filepath.Base(path), err)
		}
		// Make sure the new data is parsed.
		cfgData = defaultConfig
	} else if err != nil {
		return nil, fmt.Errorf("error trying to open %s: %w", filepath.Base(path), err)
	}

	cfg, err := Parse(cfgData)
	if err != nil {
		return nil, fmt.Errorf("error trying to parse %s: %w", filepath.Base(path), err)
	}
	if !filepath.IsAbs(cfg.Bundler.Root) {
		abs, err := filepath.Abs(filepath.Join(filepath.Dir(path), cfg.Bundler.Root))
		if err != nil {
			return nil, fmt.Errorf("unable to resolve project root: %w", err)
		}
		cfg.Bundler.Root = abs
	}
	return cfg, nil
}

// Parse decodes config data and fills in the defaults for any missing bundler settings. The root is left as written.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Bundler.Root == "" {
		cfg.Bundler.Root = "."
	}
	if cfg.Bundler.OutDir == "" {
		cfg.Bundler.OutDir = "dist"
	}
	if cfg.Bundler.Lock == "" {
		cfg.Bundler.Lock = "pluginpack.lock"
	}
	return cfg, nil
}
