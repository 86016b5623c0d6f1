// Package config holds the tool settings, loaded from an optional YAML
// project file and overridden by command-line flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = "sleekrender.yaml"

// DefaultTolerance absorbs float noise in F-curve samples without eating
// real motion. It trades false-duplicate risk against missed speedups, so
// it stays configurable rather than constant.
const DefaultTolerance = 1e-6

type Config struct {
	// OutputRoot is the directory that receives one subdirectory per scene.
	OutputRoot string `yaml:"output_root"`
	// Tolerance is the absolute difference below which two float samples
	// count as equal.
	Tolerance float64 `yaml:"tolerance"`
	// Stitch assembles output.mov from the finished sequence.
	Stitch bool `yaml:"stitch"`
	// Verify decodes the finished sequence and checks it is complete.
	Verify bool `yaml:"verify"`
	// Resume reuses frames already present from an earlier run.
	Resume bool `yaml:"resume"`
	// BlenderPath overrides PATH lookup of the blender binary.
	BlenderPath string `yaml:"blender_path"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		OutputRoot: "output",
		Tolerance:  DefaultTolerance,
		LogLevel:   "info",
	}
}

// Load reads a YAML config file. Fields absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves the config as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output_root must not be empty")
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	}
	return nil
}
