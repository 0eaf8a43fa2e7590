// Package config loads host configuration from scripthost.yaml or
// scripthost.cue.
//
// YAML is decoded strictly (unknown keys are errors). CUE files are unified
// with an embedded closed schema before decoding, so typos and wrong types
// are reported with CUE positions.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File names Discover looks for, in order.
var FileNames = []string{"scripthost.yaml", "scripthost.yml", "scripthost.cue"}

// Config is the host configuration.
type Config struct {
	// References are added to the coordinator's defaults at Initialize.
	References []string `yaml:"references" json:"references"`

	// Namespaces are imported in addition to the coordinator's defaults.
	Namespaces []string `yaml:"namespaces" json:"namespaces"`

	// Packs names the extension packs to load, in order.
	Packs []string `yaml:"packs" json:"packs"`

	// HistoryDB is the SQLite submission history path. Empty disables it.
	HistoryDB string `yaml:"history_db" json:"history_db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// GoPath is where the interpreter finds non-stdlib import paths.
	GoPath string `yaml:"go_path" json:"go_path"`

	// Source is the file the config was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		References: []string{},
		Namespaces: []string{},
		Packs:      []string{},
		LogLevel:   "info",
	}
}

// Load reads path, choosing the decoder by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	case ".cue":
		cfg, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the first of FileNames found in dir, or Default().
func Discover(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return Default(), nil
}

func parseYAML(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		// an empty document is a valid, empty config
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	for i, name := range c.Packs {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("packs[%d]: empty pack name", i)
		}
	}
	return nil
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func (c *Config) fillDefaults() {
	if c.References == nil {
		c.References = []string{}
	}
	if c.Namespaces == nil {
		c.Namespaces = []string{}
	}
	if c.Packs == nil {
		c.Packs = []string{}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
}
