// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/triarb/config"
)

// DefaultDataDir returns $HOME/.triarb.
func DefaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".triarb")
}

type ConfigFlags struct {
	configFile string
	dataDir    string
}

func (f *ConfigFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.configFile, "config", "", "path to a TOML configuration file")
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory (default $HOME/.triarb)")
}

// ConfigFile returns the config file path given on the command line, if any.
func (f *ConfigFlags) ConfigFile() string {
	return f.configFile
}

// LoadConfig loads the configuration with variables from the .env file in
// the current directory and the secrets file under the data directory. Data
// directory given on the command line takes precedence over the configured
// value. Data directory is created if necessary.
func (f *ConfigFlags) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile, ".env")
	if err != nil {
		return nil, err
	}

	dir := f.dataDir
	if len(dir) == 0 {
		dir = cfg.DataDir
	}
	if len(dir) == 0 {
		dir = DefaultDataDir()
	}
	dataDir, err := EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	// Load again so that secrets from the data directory take part in the
	// environment overrides.
	cfg, err = config.Load(f.configFile, ".env", filepath.Join(dataDir, config.SecretsFileName))
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DataDir returns the absolute path to the data directory without loading
// the configuration file.
func (f *ConfigFlags) DataDir() (string, error) {
	dir := f.dataDir
	if len(dir) == 0 {
		dir = os.Getenv(config.EnvPrefix + "DATA_DIR")
	}
	if len(dir) == 0 {
		dir = DefaultDataDir()
	}
	return EnsureDir(dir)
}

// EnsureDir creates the directory when it doesn't exist and returns its
// absolute path.
func EnsureDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine directory %q absolute path: %w", dir, err)
	}
	return abs, nil
}
