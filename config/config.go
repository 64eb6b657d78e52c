// Package config loads the YAML-driven execution configuration the
// CLI binds its flags to, per SPEC_FULL.md §9a.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls one run of the VM through the CLI: whether GC runs
// and how many micro-steps are allowed. Format is parsed from the file,
// but the CLI does not read it and always prints text.
type Config struct {
	GC       bool   `yaml:"gc"`
	MaxSteps int    `yaml:"max_steps"`
	Format   string `yaml:"format"` // "text" | "json"; not read by the CLI
}

// Default returns the configuration the CLI uses when no --config file
// is given.
func Default() Config {
	return Config{GC: true, MaxSteps: 0, Format: "text"}
}

// Load reads and parses a YAML config file, starting from Default and
// overriding only the fields present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
