// Package config holds all abforge configuration: where the external
// antibody-design toolkit lives, how each stage tool is launched, and how
// the API service is exposed. Values come from defaults, an optional yaml
// file, and ABFORGE_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is consulted when no --config flag is given.
const DefaultConfigFile = "abforge.yaml"

// Config is the root configuration.
type Config struct {
	// Root is the checkout of the external design toolkit; stage scripts,
	// weights and examples are resolved under it unless overridden.
	Root string `yaml:"root"`

	WeightsDir  string `yaml:"weights_dir"`
	ExamplesDir string `yaml:"examples_dir"`
	JobsDir     string `yaml:"jobs_dir"`

	Stages     StagesConfig     `yaml:"stages"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// GenerationConfig holds the structure-generation defaults applied when a
// request leaves a field unset.
type GenerationConfig struct {
	// DefaultFramework is the framework structure used when a request
	// carries none. Resolved under ExamplesDir when relative.
	DefaultFramework string `yaml:"default_framework"`

	// DefaultLoops are the loop tokens (label:range) designed by default.
	DefaultLoops []string `yaml:"default_loops"`

	DefaultNumDesigns     int  `yaml:"default_num_designs"`
	DefaultDiffusionSteps int  `yaml:"default_diffusion_steps"`
	Deterministic         bool `yaml:"deterministic"`
	SeqsPerStruct         int  `yaml:"seqs_per_struct"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration, rooted at root.
func Default(root string) *Config {
	cfg := &Config{
		Root: root,
		Generation: GenerationConfig{
			DefaultFramework: "hu-4D5-8_Fv.pdb",
			DefaultLoops: []string{
				"L1:8-13", "L2:7", "L3:9-11",
				"H1:7", "H2:6", "H3:5-13",
			},
			DefaultNumDesigns:     1,
			DefaultDiffusionSteps: 50,
			Deterministic:         true,
			SeqsPerStruct:         1,
		},
		Server:  defaultServer(),
		Logging: LoggingConfig{Level: "info"},
	}
	cfg.Stages = defaultStages()
	return cfg
}

// Load builds the effective configuration. path may be empty, in which case
// DefaultConfigFile is read if present. A .env file next to the process is
// honored before environment overrides are applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	root := os.Getenv("ABFORGE_ROOT")
	if root == "" {
		root = "."
	}
	cfg := Default(root)

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve fills derived paths that were left empty relative to Root.
func (c *Config) resolve() {
	if c.WeightsDir == "" {
		c.WeightsDir = filepath.Join(c.Root, "weights")
	}
	if c.ExamplesDir == "" {
		c.ExamplesDir = filepath.Join(c.Root, "scripts", "examples", "example_inputs")
	}
	if c.JobsDir == "" {
		c.JobsDir = filepath.Join(c.Root, "jobs_output")
	}
	c.Stages.resolve(c.Root, c.WeightsDir)
	if !filepath.IsAbs(c.Generation.DefaultFramework) &&
		filepath.Dir(c.Generation.DefaultFramework) == "." {
		c.Generation.DefaultFramework = filepath.Join(c.ExamplesDir, c.Generation.DefaultFramework)
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("config: root is required")
	}
	if err := c.Stages.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	g := c.Generation
	if g.DefaultNumDesigns <= 0 || g.DefaultDiffusionSteps <= 0 || g.SeqsPerStruct <= 0 {
		return fmt.Errorf("config: generation defaults must be positive")
	}
	return nil
}
