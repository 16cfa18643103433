// Package config provides configuration loading and validation for the stash
// CLI. It handles reading configuration from files, providing defaults, and
// ensuring all required settings are properly set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lc/stash/internal/document"
	"github.com/lc/stash/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

// DefaultConfigPath is the default path for the configuration file,
// relative to the user's home directory.
const DefaultConfigPath = ".stash/config.yaml"

// Config holds the CLI configuration.
type Config struct {
	Document DocumentConfig `yaml:"document"`
}

// DocumentConfig holds settings for the shared configuration document.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.FS
	path string
}

// Verify FSProvider implements Provider interface.
var _ Provider = (*FSProvider)(nil)

// New creates a new configuration provider using the default configuration
// path. It uses the OS filesystem and the user's home directory to locate
// the configuration file. If the home directory cannot be determined, it
// falls back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		// Log the error but continue with empty path, which will resolve to current directory
		fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a new provider with a specific config path.
// It allows specifying both the filesystem implementation and the path to use.
func NewWithPath(fs filesys.FS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a default configuration with preset values.
// This is used when no configuration file exists.
func Default() *Config {
	return &Config{
		Document: DocumentConfig{
			Path: document.DefaultPath(),
		},
	}
}

// Load loads the configuration from the specified path.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if strings.TrimSpace(cfg.Document.Path) == "" {
		cfg.Document.Path = document.DefaultPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Document.Path) == "" {
		return errors.New("document path cannot be empty")
	}
	if filepath.Ext(c.Document.Path) != ".json" {
		return errors.New("document path must point to a .json file")
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return &cfg, nil
}
