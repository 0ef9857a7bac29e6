package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// SpacePath is the resource definition file.
	SpacePath string
	// Root selects the resource to resolve, e.g. "project test". Empty
	// means the single defined project resource.
	Root string
	// Listen is the TCP address for the session protocol. Empty runs one
	// resolution directly and exits.
	Listen string

	LogFormat string
	LogLevel  string
	// Workers sizes the engine worker pool.
	Workers int
	// Timeout bounds each provider invocation.
	Timeout time.Duration
}

// FileConfig is the optional YAML daemon configuration file. Values act as
// defaults below explicit command-line flags.
type FileConfig struct {
	Space     string `yaml:"space"`
	Root      string `yaml:"root"`
	Listen    string `yaml:"listen"`
	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`
	Workers   int    `yaml:"workers"`
	Timeout   string `yaml:"timeout"`
}

// LoadFileConfig reads and strictly decodes a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// Merge fills unset Config fields from the file config.
func (c *Config) Merge(fc *FileConfig) error {
	if fc == nil {
		return nil
	}
	if c.SpacePath == "" {
		c.SpacePath = fc.Space
	}
	if c.Root == "" {
		c.Root = fc.Root
	}
	if c.Listen == "" {
		c.Listen = fc.Listen
	}
	if c.LogFormat == "" {
		c.LogFormat = fc.LogFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = fc.LogLevel
	}
	if c.Workers == 0 {
		c.Workers = fc.Workers
	}
	if c.Timeout == 0 && fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config file timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SpacePath == "" {
		return nil, errors.New("a space file is required")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &cfg, nil
}
