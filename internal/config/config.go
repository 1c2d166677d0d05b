// Package config provides configuration loading and structs for the zapdm server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	OCR       OCRConfig       `yaml:"ocr"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings. RequestTimeoutSeconds bounds
// ordinary API requests; upload, OCR, and rebuild routes are exempt because
// they legitimately run longer.
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// StorageConfig holds paths for the database, search index, and file areas.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	IndexPath     string `yaml:"index_path"`
	PagesDir      string `yaml:"pages_dir"`
	ThumbnailsDir string `yaml:"thumbnails_dir"`
	UploadTempDir string `yaml:"upload_temp_dir"`
}

// IngestConfig holds rasterization and upload settings.
type IngestConfig struct {
	// Density is the rasterization resolution in DPI for PDF splitting.
	Density int `yaml:"density"`
	// RenderTimeoutSeconds bounds a single PDF rasterization. 0 disables the bound.
	RenderTimeoutSeconds int `yaml:"render_timeout_seconds"`
}

// ThumbnailConfig holds preview image settings.
type ThumbnailConfig struct {
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
	Quality   int `yaml:"quality"`
}

// OCRConfig holds text recognition settings.
type OCRConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds query engine settings.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	TopKCandidates int `yaml:"top_k_candidates"`
	SnippetLength  int `yaml:"snippet_length"`
}

// WatchConfig holds import hot-folder settings. Files dropped into the
// watched directories are ingested into ProjectID as new documents.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	ProjectID   int64    `yaml:"project_id"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
