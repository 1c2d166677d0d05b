// Package main is the zapdm CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/index"
	"github.com/dangill-59/zapdm/internal/ingest"
	"github.com/dangill-59/zapdm/internal/models"
	"github.com/dangill-59/zapdm/internal/ocr"
	"github.com/dangill-59/zapdm/internal/raster"
	"github.com/dangill-59/zapdm/internal/search"
	"github.com/dangill-59/zapdm/internal/server"
	"github.com/dangill-59/zapdm/internal/storage"
	"github.com/dangill-59/zapdm/internal/thumbnail"
	"github.com/dangill-59/zapdm/internal/watcher"
	"github.com/dangill-59/zapdm/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/zapdm/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so "zapdm server" from the
// project dir picks up the project's config. Returns the config and the path
// that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "reocr":
		runReOCR()
	case "rebuild-index":
		runRebuildIndex()
	case "fix-counts":
		runFixCounts()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("zapdm version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, per-page ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srvOpts := []server.ServerOption{}
	var watchSvc *watcher.Watcher
	var watchCancel context.CancelFunc
	if cfg.Watch.ProjectID > 0 || len(cfg.Watch.Directories) > 0 {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if err := importDroppedFile(context.Background(), components, cfg.Watch.ProjectID, path); err != nil {
					logger.Warn("hot-folder import failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		var watchCtx context.Context
		watchCtx, watchCancel = context.WithCancel(context.Background())
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.ImportExistingFiles()
		srvOpts = append(srvOpts, server.WithWatcher(watchSvc, resolvedConfigPath))
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Engine,
		components.OCR,
		components.Storage,
		cfg,
		logger,
		srvOpts...,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchCancel != nil {
		watchCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// importDroppedFile ingests one hot-folder file as a new document in the
// configured import project. The document title is the file name without
// extension.
func importDroppedFile(ctx context.Context, components *Components, projectID int64, path string) error {
	if projectID <= 0 {
		return fmt.Errorf("watch.project_id is not configured")
	}
	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	doc := &models.Document{ProjectID: projectID, Title: title, Status: models.StatusActive}
	if err := components.Storage.CreateDocument(ctx, doc); err != nil {
		return err
	}
	_, err := components.Pipeline.IngestFile(ctx, doc.ID, path, name, ingest.Options{OCR: true})
	return err
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	documentID := fs.Int64("document", 0, "target document id")
	doOCR := fs.Bool("ocr", true, "run text recognition on the ingested pages")
	language := fs.String("language", "", "OCR language override")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 || *documentID <= 0 {
		fmt.Println("Usage: zapdm ingest --document <id> [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	// Ingestion consumes its input, so work on a spooled copy and leave the
	// user's file alone.
	spooled, err := spoolCopy(path, cfg.Storage.UploadTempDir)
	if err != nil {
		fmt.Printf("Failed to spool file: %v\n", err)
		os.Exit(1)
	}

	result, err := components.Pipeline.IngestFile(
		context.Background(), *documentID, spooled, filepath.Base(path),
		ingest.Options{OCR: *doOCR, Language: *language},
	)
	if err != nil {
		_ = os.Remove(spooled)
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d page(s) into document %d (total now %d)\n",
		len(result.Pages), *documentID, result.TotalPages)
	if result.OCRWordsFound > 0 {
		fmt.Printf("OCR recognized %d word(s)\n", result.OCRWordsFound)
	}
	for _, e := range result.Errors {
		fmt.Printf("warning: %s\n", e)
	}
}

func spoolCopy(src, tmpDir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.CreateTemp(tmpDir, "ingest-*"+filepath.Ext(src))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.Name(), nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	projectID := fs.Int64("project", 0, "restrict to one project id")
	limit := fs.Int("limit", 10, "number of documents per page")
	offset := fs.Int("offset", 0, "pagination offset")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: zapdm search [flags] <query>")
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryStr == "" {
		fmt.Println("Usage: zapdm search [flags] <query>")
		os.Exit(1)
	}

	query := &models.SearchQuery{Query: queryStr, ProjectID: *projectID, Limit: *limit, Offset: *offset}

	var response *models.SearchResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids a bleve lock conflict).
		var err error
		response, err = searchViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Engine.Search(context.Background(), query, models.AccessFilter{Admin: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printSearchResults(response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printSearchResults(resp *models.SearchResponse) {
	if resp.Total == 0 {
		fmt.Printf("No results for %q\n", resp.Query)
		return
	}
	fmt.Printf("%d document(s) match %q\n\n", resp.Total, resp.Query)
	for i, doc := range resp.Results {
		fmt.Printf("%d. %s (project: %s, relevance %.3f)\n", resp.Offset+i+1, doc.Title, doc.ProjectName, doc.TotalRelevance)
		for _, m := range doc.Matches {
			snippet := m.Snippet
			if snippet == "" {
				snippet = "(no snippet)"
			}
			fmt.Printf("   page %d: %s\n", m.PageNumber, snippet)
		}
		fmt.Println()
	}
	if resp.HasMore {
		fmt.Printf("More results available; use --offset %d\n", resp.Offset+len(resp.Results))
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	payload := struct {
		*models.SearchQuery
		Access models.AccessFilter `json:"access"`
	}{query, models.AccessFilter{Admin: true}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runReOCR() {
	fs := flag.NewFlagSet("reocr", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "reprocess all pages, not only those missing text")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: zapdm reocr [flags] <document-id>")
		os.Exit(1)
	}
	documentID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || documentID <= 0 {
		fmt.Println("document-id must be a positive integer")
		os.Exit(1)
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	result, err := components.OCR.ReprocessDocument(context.Background(), documentID, *force)
	if err != nil {
		fmt.Printf("Re-OCR failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Processed %d of %d page(s), %d word(s) recognized\n",
		result.ProcessedPages, result.TotalPages, result.TotalWords)
	for _, e := range result.Errors {
		fmt.Printf("warning: %s\n", e)
	}
}

func runRebuildIndex() {
	fs := flag.NewFlagSet("rebuild-index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	n, err := components.Pipeline.RebuildIndex(context.Background())
	if err != nil {
		fmt.Printf("Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Index rebuilt with %d entries\n", n)
}

func runFixCounts() {
	fs := flag.NewFlagSet("fix-counts", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: zapdm fix-counts [flags] <document-id>")
		os.Exit(1)
	}
	documentID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || documentID <= 0 {
		fmt.Println("document-id must be a positive integer")
		os.Exit(1)
	}

	components, cleanup := mustInitialize(*configPath)
	defer cleanup()

	count, err := components.Storage.FixPageCount(context.Background(), documentID)
	if err != nil {
		fmt.Printf("Fix failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document %d now reports %d page(s)\n", documentID, count)
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Documents      int64                  `json:"documents"`
	Pages          int64                  `json:"pages"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		pageCount, err := components.Storage.CountPages(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count pages failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{Documents: docCount, Pages: pageCount}
		diskBytes, err := storage.DiskUsageBytes(
			cfg.Storage.DatabasePath, cfg.Storage.IndexPath,
			cfg.Storage.PagesDir, cfg.Storage.ThumbnailsDir,
		)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:         %d\n", status.Documents)
		fmt.Printf("pages:             %d\n", status.Pages)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:  %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: zapdm watch <add|remove|list> [path]")
		fmt.Println("  zapdm watch add <path>     Add a hot-folder to watch")
		fmt.Println("  zapdm watch remove <path>  Remove a hot-folder")
		fmt.Println("  zapdm watch list           List watched hot-folders")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: zapdm watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "import": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: zapdm watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// mustInitialize loads config, builds a logger and all components, and exits
// on any failure. cleanup releases the components and flushes the logger.
func mustInitialize(configPath string) (*Components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Index    index.Maintainer
	OCR      *ocr.Orchestrator
	Pipeline *ingest.Pipeline
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// unavailableRenderer reports the pdftoppm lookup failure on first use, so
// image-only deployments work without poppler installed.
type unavailableRenderer struct {
	err error
}

func (r unavailableRenderer) Split(ctx context.Context, srcPath, outDir string, opts raster.Options) ([]raster.PageImage, error) {
	return nil, fmt.Errorf("PDF rendering unavailable: %w", r.err)
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	for _, dir := range []string{cfg.Storage.PagesDir, cfg.Storage.ThumbnailsDir, cfg.Storage.UploadTempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	idx, err := index.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}

	var renderer raster.Renderer
	rendererOpts := []raster.PopplerOption{}
	if debug && logger != nil {
		rendererOpts = append(rendererOpts, raster.WithLogger(logger))
	}
	poppler, err := raster.NewPopplerRenderer(rendererOpts...)
	if err != nil {
		if logger != nil {
			logger.Warn("pdftoppm not found; PDF uploads will be rejected", zap.Error(err))
		}
		renderer = unavailableRenderer{err: err}
	} else {
		renderer = poppler
	}

	engine := ocr.NewTesseractEngine()
	ocrOpts := []ocr.OrchestratorOption{}
	if debug && logger != nil {
		ocrOpts = append(ocrOpts, ocr.WithLogger(logger))
	}
	orch := ocr.NewOrchestrator(engine, store, idx, &cfg.OCR, ocrOpts...)

	thumbs := &thumbnail.Generator{
		MaxWidth:  cfg.Thumbnail.MaxWidth,
		MaxHeight: cfg.Thumbnail.MaxHeight,
		Quality:   cfg.Thumbnail.Quality,
	}

	pipelineOpts := []ingest.PipelineOption{}
	if debug && logger != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithLogger(logger))
	}
	pipeline := ingest.NewPipeline(store, renderer, thumbs, orch, idx, cfg, pipelineOpts...)

	searchOpts := []search.Option{}
	if debug && logger != nil {
		searchOpts = append(searchOpts, search.WithLogger(logger))
	}
	searchEngine := search.NewEngine(store, idx, &cfg.Search, searchOpts...)

	return &Components{
		Storage:  store,
		Index:    idx,
		OCR:      orch,
		Pipeline: pipeline,
		Engine:   searchEngine,
	}, nil
}

func printUsage() {
	fmt.Println(`zapdm - document ingestion, OCR, and full-text page search

Usage:
  zapdm server [flags]                 Start the HTTP server
  zapdm ingest [flags] <file>          Ingest a PDF or image into a document
  zapdm search [flags] <query>         Search page text
  zapdm reocr [flags] <document-id>    Re-run OCR over a document's pages
  zapdm rebuild-index [flags]          Rebuild the search index from the database
  zapdm fix-counts [flags] <doc-id>    Recompute a document's page counter
  zapdm status [flags]                 Show storage and index status
  zapdm watch <add|remove|list>        Manage import hot-folders
  zapdm version                        Show version
  zapdm help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/zapdm/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --document int     Target document id (required)
  --ocr              Run text recognition (default: true)
  --language string  OCR language override

Search Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --project int      Restrict to one project id
  --limit int        Documents per page (default: 10)
  --offset int       Pagination offset
  --output string    Output format: text or json (default: text)

Re-OCR Flags:
  --config string    Config file path
  --force            Reprocess every page, not only pages missing text

Examples:
  zapdm server
  zapdm ingest --document 12 scan.pdf
  zapdm search "invoice 1001"
  zapdm search --project 3 --output json contract
  zapdm reocr --force 12
  zapdm rebuild-index
  zapdm status
  zapdm watch add /import/scans`)
}
