// Package ingest runs the document ingestion pipeline: split an upload into
// ordered pages, assign a contiguous page-number block, generate thumbnails,
// run OCR, persist page rows, and keep the search index in sync.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/index"
	"github.com/dangill-59/zapdm/internal/models"
	"github.com/dangill-59/zapdm/internal/ocr"
	"github.com/dangill-59/zapdm/internal/pagefile"
	"github.com/dangill-59/zapdm/internal/raster"
	"github.com/dangill-59/zapdm/internal/storage"
)

// Options controls one ingestion batch.
type Options struct {
	// OCR requests text recognition for the batch's pages.
	OCR bool
	// Language overrides the configured OCR language when non-empty.
	Language string
}

// Pipeline ingests uploaded files into documents. All collaborators are
// injected; nothing here is a singleton.
type Pipeline struct {
	store    storage.Storage
	renderer raster.Renderer
	thumbs   Thumbnailer
	ocr      *ocr.Orchestrator
	idx      index.Maintainer
	pagesDir string
	thumbDir string
	tmpDir   string
	density  int
	locks    *docLocks
	logger   *zap.Logger // optional; when set, logs per-page failures
}

// Thumbnailer produces a preview image for a stored page image.
type Thumbnailer interface {
	Generate(srcPath, dstPath string) error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for per-page failure reporting.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates an ingestion pipeline with the given dependencies.
func NewPipeline(
	store storage.Storage,
	renderer raster.Renderer,
	thumbs Thumbnailer,
	ocrOrch *ocr.Orchestrator,
	idx index.Maintainer,
	cfg *config.Config,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		store:    store,
		renderer: renderer,
		thumbs:   thumbs,
		ocr:      ocrOrch,
		idx:      idx,
		pagesDir: cfg.Storage.PagesDir,
		thumbDir: cfg.Storage.ThumbnailsDir,
		tmpDir:   cfg.Storage.UploadTempDir,
		density:  cfg.Ingest.Density,
		locks:    newDocLocks(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestFile ingests one uploaded file into documentID as a batch of pages.
// PDFs are split into one page per rasterized page; a single image upload
// becomes one page. Per-page OCR and thumbnail failures are collected in the
// result's Errors and never abort the batch; a source file that cannot be
// parsed at all fails the whole call with no page rows written.
func (p *Pipeline) IngestFile(ctx context.Context, documentID int64, uploadPath, originalName string, opts Options) (*models.IngestResult, error) {
	unlock := p.locks.Lock(documentID)
	defer unlock()

	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusActive {
		return nil, fmt.Errorf("document %d is not active", documentID)
	}

	isPDF, err := raster.IsPDF(uploadPath)
	if err != nil {
		return nil, fmt.Errorf("inspect upload: %w", err)
	}

	var (
		batch    []raster.PageImage
		embedded []string
		tempDir  string
		mimeType string
		pageExt  string
	)
	if isPDF {
		tempDir, err = os.MkdirTemp(p.tmpDir, "split-")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(tempDir)

		batch, err = p.renderer.Split(ctx, uploadPath, tempDir, raster.Options{Density: p.density})
		if err != nil {
			// Batch-fatal: corrupt source, nothing persisted.
			return nil, fmt.Errorf("split PDF: %w", err)
		}
		// Text-layer fast path: pages with embedded text skip the OCR engine.
		if opts.OCR {
			embedded, err = raster.EmbeddedText(uploadPath)
			if err != nil {
				if p.logger != nil {
					p.logger.Warn("text layer extraction failed", zap.String("file", originalName), zap.Error(err))
				}
				embedded = nil
			}
		}
		mimeType = raster.MIMEPNG
		pageExt = ".png"
	} else {
		mimeType, err = raster.ValidateImageMIME(uploadPath)
		if err != nil {
			return nil, err
		}
		batch = []raster.PageImage{{ImagePath: uploadPath, SourceIndex: 0}}
	}

	// Reserve the whole page-number block up front so a mid-batch failure
	// cannot renumber later pages.
	startNumber, err := p.store.NextPageNumber(ctx, documentID)
	if err != nil {
		return nil, err
	}

	language := opts.Language
	if language == "" && p.ocr != nil {
		language = p.ocr.Language()
	}

	result := &models.IngestResult{OCRProcessed: opts.OCR}
	anyText := false
	for i, src := range batch {
		pageNumber := startNumber + i
		page, pageErrs := p.ingestOne(ctx, doc, src, pageNumber, originalName, mimeType, pageExt, embedded, opts, language)
		result.Errors = append(result.Errors, pageErrs...)
		if page == nil {
			continue
		}
		result.Pages = append(result.Pages, page)
		if strings.TrimSpace(page.OCRText) != "" {
			anyText = true
			result.OCRWordsFound += page.WordCount
		}
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("no pages could be ingested from %s: %s", originalName, strings.Join(result.Errors, "; "))
	}

	var agg *storage.OCRAggregate
	if anyText {
		agg = &storage.OCRAggregate{Language: language, CompletedAt: time.Now()}
	}
	if err := p.store.ApplyIngestAggregates(ctx, documentID, len(result.Pages), agg); err != nil {
		return nil, fmt.Errorf("update document counters: %w", err)
	}

	updated, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	result.TotalPages = updated.TotalPages
	result.HasOCRText = updated.HasOCRText

	// All pages are durably moved; the original PDF upload is no longer needed.
	if isPDF {
		if err := os.Remove(uploadPath); err != nil && p.logger != nil {
			p.logger.Warn("could not remove original upload", zap.String("path", uploadPath), zap.Error(err))
		}
	}
	if p.logger != nil {
		p.logger.Info("batch ingested",
			zap.Int64("document_id", documentID),
			zap.Int("pages", len(result.Pages)),
			zap.Int("errors", len(result.Errors)))
	}
	return result, nil
}

// ingestOne processes a single page of the batch: move to final location,
// thumbnail (best-effort), OCR (best-effort), persist, index. Returns nil
// when the page could not be persisted at all.
func (p *Pipeline) ingestOne(
	ctx context.Context,
	doc *models.Document,
	src raster.PageImage,
	pageNumber int,
	originalName, mimeType, pageExt string,
	embedded []string,
	opts Options,
	language string,
) (*models.Page, []string) {
	var errs []string

	fileName := pagefile.New(originalName, pageExt)
	finalPath := filepath.Join(p.pagesDir, fileName)
	if err := moveFile(src.ImagePath, finalPath); err != nil {
		return nil, []string{fmt.Sprintf("page %d: store file: %v", pageNumber, err)}
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("page %d: stat stored file: %v", pageNumber, err)}
	}

	page := &models.Page{
		DocumentID:     doc.ID,
		PageNumber:     pageNumber,
		PageOrder:      pageNumber,
		FilePath:       finalPath,
		FileName:       fileName,
		FileSize:       info.Size(),
		MimeType:       mimeType,
		SourceFileName: originalName,
		Status:         models.StatusActive,
	}

	thumbPath := filepath.Join(p.thumbDir, pagefile.ThumbnailName(fileName))
	if err := p.thumbs.Generate(finalPath, thumbPath); err != nil {
		if p.logger != nil {
			p.logger.Warn("thumbnail failed", zap.Int("page_number", pageNumber), zap.Error(err))
		}
		errs = append(errs, fmt.Sprintf("page %d: thumbnail: %v", pageNumber, err))
	} else {
		page.ThumbnailPath = thumbPath
	}

	if opts.OCR {
		if text := embeddedTextFor(embedded, src.SourceIndex); text != "" {
			now := time.Now()
			page.OCRText = text
			page.OCRProcessedAt = &now
			page.OCRLanguage = language
			page.WordCount = len(strings.Fields(text))
		} else if p.ocr != nil {
			res, err := p.ocr.RecognizePage(ctx, finalPath, language)
			if err != nil {
				if p.logger != nil {
					p.logger.Warn("page OCR failed", zap.Int("page_number", pageNumber), zap.Error(err))
				}
				errs = append(errs, fmt.Sprintf("page %d: ocr: %v", pageNumber, err))
			} else {
				now := time.Now()
				conf := res.Confidence
				page.OCRText = res.Text
				page.OCRConfidence = &conf
				page.OCRProcessedAt = &now
				page.OCRLanguage = language
				page.WordCount = res.WordCount
			}
		}
	}

	if err := p.store.CreatePage(ctx, page); err != nil {
		return nil, append(errs, fmt.Sprintf("page %d: persist: %v", pageNumber, err))
	}

	if strings.TrimSpace(page.OCRText) != "" {
		if err := p.idx.Upsert(ctx, index.PageEntry{
			PageID:        page.ID,
			DocumentID:    doc.ID,
			ProjectID:     doc.ProjectID,
			DocumentTitle: doc.Title,
			PageText:      page.OCRText,
		}); err != nil {
			errs = append(errs, fmt.Sprintf("page %d: index: %v", pageNumber, err))
		}
	}
	return page, errs
}

func embeddedTextFor(embedded []string, sourceIndex int) string {
	if sourceIndex < 0 || sourceIndex >= len(embedded) {
		return ""
	}
	return strings.TrimSpace(embedded[sourceIndex])
}

// SoftDeletePage marks a page deleted, removes its index entry, and returns
// the parent document id with its remaining active page count.
func (p *Pipeline) SoftDeletePage(ctx context.Context, pageID int64) (int64, int, error) {
	documentID, remaining, err := p.store.SoftDeletePage(ctx, pageID)
	if err != nil {
		return 0, 0, err
	}
	if err := p.idx.Remove(ctx, pageID); err != nil {
		// The row is already gone; rebuild repairs a leftover entry.
		if p.logger != nil {
			p.logger.Warn("index entry removal failed", zap.Int64("page_id", pageID), zap.Error(err))
		}
	}
	return documentID, remaining, nil
}

// SoftDeleteDocument soft-deletes a document, cascading to its pages and
// their index entries. Not reversible through this API.
func (p *Pipeline) SoftDeleteDocument(ctx context.Context, documentID int64) error {
	pageIDs, err := p.store.SoftDeleteDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if err := p.idx.RemoveAll(ctx, pageIDs); err != nil {
		if p.logger != nil {
			p.logger.Warn("index cascade removal failed", zap.Int64("document_id", documentID), zap.Error(err))
		}
	}
	return nil
}

// RebuildIndex clears and repopulates the search index from the active pages
// that carry OCR text. Returns the number of entries written.
func (p *Pipeline) RebuildIndex(ctx context.Context) (int, error) {
	return p.idx.RebuildAll(ctx, func(ctx context.Context) ([]index.PageEntry, error) {
		pages, err := p.store.ActivePagesWithText(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]index.PageEntry, len(pages))
		for i, pg := range pages {
			entries[i] = index.PageEntry{
				PageID:        pg.PageID,
				DocumentID:    pg.DocumentID,
				ProjectID:     pg.ProjectID,
				DocumentTitle: pg.DocumentTitle,
				PageText:      pg.OCRText,
			}
		}
		return entries, nil
	})
}

// moveFile renames src to dst, falling back to copy+remove across
// filesystems. dst's directory is created as needed.
func moveFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
