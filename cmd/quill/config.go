package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config is the YAML configuration of the CLI.
//
//	notes:
//	  dir: ./notes
//	cache:
//	  capacity: 1024
//	  path: /tmp/quill-cache.db
type config struct {
	Notes struct {
		Dir string `yaml:"dir"`
	} `yaml:"notes"`
	Cache struct {
		Capacity int    `yaml:"capacity"`
		Path     string `yaml:"path"`
	} `yaml:"cache"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	cfg.Notes.Dir = "."
	if path == "" {
		// Without an explicit flag the config file is optional.
		if _, err := os.Stat("quill.yaml"); err != nil {
			return cfg, nil
		}
		path = "quill.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Notes.Dir == "" {
		cfg.Notes.Dir = "."
	}
	return cfg, nil
}
