package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for a verification run.
// Zero values mean "unspecified" and are filled from the environment, the
// variant preset, or built-in defaults by the CLI.
type Config struct {
	Cfg         string  `json:"cfg" yaml:"cfg" toml:"cfg"`
	Variant     string  `json:"variant" yaml:"variant" toml:"variant"`
	Threshold   float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	Bias        string  `json:"bias" yaml:"bias" toml:"bias"`
	Output      string  `json:"output" yaml:"output" toml:"output"`
	NoColor     bool    `json:"no_color" yaml:"no_color" toml:"no_color"`
	MetricsFile string  `json:"metrics_file" yaml:"metrics_file" toml:"metrics_file"`
	LogLevel    string  `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Environment variables consulted by FromEnv.
const (
	EnvCfg      = "LORAVERIFY_CFG"
	EnvVariant  = "LORAVERIFY_VARIANT"
	EnvLogLevel = "LORAVERIFY_LOG_LEVEL"
	EnvNoColor  = "NO_COLOR"
)

// Load reads a settings file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, cfg.Validate()
}

// FromEnv reads the settings that have an environment variable. Any value of
// NO_COLOR, including empty, disables color when the variable is set.
func FromEnv(lookup func(string) (string, bool)) Config {
	var cfg Config
	if v, ok := lookup(EnvCfg); ok {
		cfg.Cfg = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvVariant); ok {
		cfg.Variant = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if _, ok := lookup(EnvNoColor); ok {
		cfg.NoColor = true
	}
	return cfg
}

// Overlay returns c with every non-zero field of over applied on top.
func (c Config) Overlay(over Config) Config {
	if over.Cfg != "" {
		c.Cfg = over.Cfg
	}
	if over.Variant != "" {
		c.Variant = over.Variant
	}
	if over.Threshold != 0 {
		c.Threshold = over.Threshold
	}
	if over.Bias != "" {
		c.Bias = over.Bias
	}
	if over.Output != "" {
		c.Output = over.Output
	}
	if over.NoColor {
		c.NoColor = true
	}
	if over.MetricsFile != "" {
		c.MetricsFile = over.MetricsFile
	}
	if over.LogLevel != "" {
		c.LogLevel = over.LogLevel
	}
	return c
}

// Validate rejects values that can be checked without further context.
func (c Config) Validate() error {
	switch strings.ToLower(c.Output) {
	case "", "text", "json":
	default:
		return fmt.Errorf("output: want text or json, got %q", c.Output)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold: must be in (0,1], got %g", c.Threshold)
	}
	return nil
}
