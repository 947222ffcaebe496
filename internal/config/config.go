// Package config loads optional YAML defaults for tmplc's CLI flags, so a
// build pipeline calling the compiler repeatedly doesn't have to repeat
// the same flags on every invocation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors the CLI flags a config file may default. Explicit
// command-line flags always win over a value loaded here.
type File struct {
	Input      string `yaml:"input"`
	Output     string `yaml:"output"`
	ExportName string `yaml:"export_name"`
	Verbose    bool   `yaml:"verbose"`
}

// Load reads and parses a YAML config file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &f, nil
}
