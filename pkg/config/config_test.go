package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != "localhost:8787" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.SearchLimit != 30 {
		t.Errorf("SearchLimit = %d", cfg.SearchLimit)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join("convos", "convos.db")) {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{
		DBPath:      "/tmp/test.db",
		Listen:      "127.0.0.1:9999",
		SearchLimit: 50,
	}
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.DBPath != cfg.DBPath || loaded.Listen != cfg.Listen || loaded.SearchLimit != cfg.SearchLimit {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := os.WriteFile(path, []byte("listen = \"localhost:9000\"\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != "localhost:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should default when omitted")
	}
	if cfg.SearchLimit != 30 {
		t.Errorf("SearchLimit = %d, want default 30", cfg.SearchLimit)
	}
}

func TestSaveTemplateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := &Config{DBPath: "/data/convos.db"}
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatalf("SaveTemplateConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading template: %v", err)
	}
	if !strings.Contains(string(data), "/data/convos.db") {
		t.Errorf("template does not contain the db path:\n%s", data)
	}

	// The template must stay loadable.
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig on template: %v", err)
	}
	if loaded.DBPath != "/data/convos.db" {
		t.Errorf("DBPath = %q", loaded.DBPath)
	}
}
