package config_test

import (
	"os"
	"testing"

	"github.com/kvasari/surehash/internal/config"
)

func TestLoadDefaultsApplied(t *testing.T) {
	f, err := os.CreateTemp("", "surehash-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString("sure_tree_paths:\n  older: /data/older.tree\n  latest: /data/latest.tree\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := config.Load(f.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule == "" {
		t.Error("expected default schedule to be set")
	}
	if cfg.HTTPAddr == "" {
		t.Error("expected default http_addr to be set")
	}
	if cfg.HashWorkers == 0 {
		t.Error("expected default hash_workers to be set")
	}
	if cfg.SureTreePaths.Older != "/data/older.tree" {
		t.Errorf("sure_tree_paths.older = %q, want /data/older.tree", cfg.SureTreePaths.Older)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load on a missing file should return defaults, not an error: %v", err)
	}
	if cfg.DBPath == "" {
		t.Error("expected default db_path to be set")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	f, err := os.CreateTemp("", "surehash-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString("not_a_real_field: true\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := config.Load(f.Name()); err == nil {
		t.Error("expected an error for an unknown config field")
	}
}
