package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
ocr:
  enabled: true
  language: "deu"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != "test.db" {
		t.Errorf("database_path: got %q", cfg.Storage.DatabasePath)
	}
	if !cfg.OCR.Enabled || cfg.OCR.Language != "deu" {
		t.Errorf("unexpected ocr config: %+v", cfg.OCR)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("port default: got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeoutSeconds != 120 {
		t.Errorf("request timeout default: got %d", cfg.Server.RequestTimeoutSeconds)
	}
	if cfg.Ingest.Density != 200 {
		t.Errorf("density default: got %d", cfg.Ingest.Density)
	}
	if cfg.OCR.Language != "eng" {
		t.Errorf("ocr language default: got %q", cfg.OCR.Language)
	}
	if cfg.Search.MaxLimit != 100 {
		t.Errorf("max limit default: got %d", cfg.Search.MaxLimit)
	}
	if cfg.Thumbnail.Quality != 80 {
		t.Errorf("thumbnail quality default: got %d", cfg.Thumbnail.Quality)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default should be set")
	}
}

func TestWatchRecursiveOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("recursive defaults to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false is respected")
	}
}
