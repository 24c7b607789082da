// Package config loads the interactive shell's configuration file, a small
// YAML document. A missing file is not an error; defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Prompt is printed before every interactive input line.
	Prompt string `yaml:"prompt"`
	// HistoryFile persists interactive history; empty disables persistence.
	HistoryFile string `yaml:"history_file"`
	HistorySize int    `yaml:"history_size"`
}

func Default() *Config {
	c := &Config{
		Prompt:      "slate> ",
		HistorySize: 1000,
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.HistoryFile = filepath.Join(home, ".slate_history")
	}
	return c
}

// Load reads path from fs and overlays it on the defaults. A nonexistent
// path yields the defaults; a malformed file is an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	c := Default()
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return c, nil
	} else if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("parse %v: %v", path, err)
	}
	if c.HistorySize < 0 {
		c.HistorySize = 0
	}
	return c, nil
}
