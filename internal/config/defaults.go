package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 120
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/zapdm/data/db/zapdm.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/zapdm/data/indices/pages.bleve"
	}
	if cfg.Storage.PagesDir == "" {
		cfg.Storage.PagesDir = "/usr/local/var/zapdm/data/pages"
	}
	if cfg.Storage.ThumbnailsDir == "" {
		cfg.Storage.ThumbnailsDir = "/usr/local/var/zapdm/data/thumbnails"
	}
	if cfg.Storage.UploadTempDir == "" {
		cfg.Storage.UploadTempDir = "/usr/local/var/zapdm/data/tmp"
	}
	if cfg.Ingest.Density == 0 {
		cfg.Ingest.Density = 200
	}
	if cfg.Ingest.RenderTimeoutSeconds == 0 {
		cfg.Ingest.RenderTimeoutSeconds = 300
	}
	if cfg.Thumbnail.MaxWidth == 0 {
		cfg.Thumbnail.MaxWidth = 200
	}
	if cfg.Thumbnail.MaxHeight == 0 {
		cfg.Thumbnail.MaxHeight = 280
	}
	if cfg.Thumbnail.Quality == 0 {
		cfg.Thumbnail.Quality = 80
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.TimeoutSeconds == 0 {
		cfg.OCR.TimeoutSeconds = 60
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 500
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 200
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".tif", ".tiff"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
