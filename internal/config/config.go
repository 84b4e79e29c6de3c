package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	// Root is the logical root path substituted for the sentinel name
	// carried by a tree's outermost Enter (spec N3), and the filesystem
	// directory the direct/threaded hashers actually read file content
	// from while co-walking the sure-tree snapshot's metadata.
	Root                     string        `yaml:"root"                         json:"root"`
	SureTreePaths            SureTreePaths `yaml:"sure_tree_paths"              json:"sure_tree_paths"`
	WeavePath                string        `yaml:"weave_path"                   json:"-"`
	DBPath                   string        `yaml:"db_path"                      json:"-"`
	LogLevel                 string        `yaml:"log_level"                    json:"-"`
	HashWorkers              int           `yaml:"hash_workers"                 json:"hash_workers"`
	ChannelCapacity          int           `yaml:"channel_capacity"             json:"channel_capacity"`
	ProgressReportIntervalMs int           `yaml:"progress_report_interval_ms"  json:"-"`
	Schedule                 string        `yaml:"schedule"                     json:"schedule"`
	SchedulePaused           bool          `yaml:"schedule_paused"              json:"schedule_paused"`
	DeltaRetentionCount      int           `yaml:"delta_retention_count"        json:"delta_retention_count"`
	HTTPAddr                 string        `yaml:"http_addr"                    json:"-"`
}

// SureTreePaths names the two generations of prior-tree input the
// hash-update driver and migrator read from.
type SureTreePaths struct {
	Older  string `yaml:"older"  json:"older"`
	Latest string `yaml:"latest" json:"latest"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.WeavePath == "" {
		c.WeavePath = "/data/tree.weave"
	}
	if c.DBPath == "" {
		c.DBPath = "/data/surehash.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HashWorkers == 0 {
		c.HashWorkers = 4
	}
	if c.ChannelCapacity == 0 {
		// spec §4.7: each channel is bounded at 2*hash_workers.
		c.ChannelCapacity = 2 * c.HashWorkers
	}
	if c.ProgressReportIntervalMs == 0 {
		c.ProgressReportIntervalMs = 500
	}
	if c.Schedule == "" {
		c.Schedule = "0 2 * * *"
	}
	if c.DeltaRetentionCount == 0 {
		c.DeltaRetentionCount = 10
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the
// server can start without a mounted config file (useful for bare
// Docker runs).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
