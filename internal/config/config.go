// Package config loads the daemon/CLI's yaml configuration file,
// merging it over a set of built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every knob the daemon and CLI need: where the collection
// lives, how the HTTP surface is exposed, and backup retention policy.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Backup struct {
		Dir            string `yaml:"dir"`
		RetentionCount int    `yaml:"retentionCount"`
	} `yaml:"backup"`

	Review struct {
		MaxTakenMs int64 `yaml:"maxTakenMs"`
	} `yaml:"review"`
}

// Default returns the configuration a fresh install starts with.
func Default() Config {
	var c Config
	c.Database.Path = "./data/collection.db"
	c.Server.Addr = ":8080"
	c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	c.Backup.Dir = "./backups"
	c.Backup.RetentionCount = 10
	c.Review.MaxTakenMs = 60000
	return c
}

// Load reads path and merges it over Default(). A missing file is not an
// error — callers get the defaults.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path as yaml, creating or truncating the file.
func Save(c Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
