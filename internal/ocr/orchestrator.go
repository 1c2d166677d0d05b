package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/index"
	"github.com/dangill-59/zapdm/internal/models"
	"github.com/dangill-59/zapdm/internal/storage"
)

// Orchestrator runs recognition per page with a bounded timeout and applies
// results to storage and the search index. Engine failure on one page never
// aborts sibling pages; failures are collected per page.
type Orchestrator struct {
	engine  Engine
	store   storage.Storage
	idx     index.Maintainer
	lang    string
	timeout time.Duration
	logger  *zap.Logger // optional; when set, logs per-page failures
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a logger for per-page failure reporting.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator with the given dependencies.
func NewOrchestrator(engine Engine, store storage.Storage, idx index.Maintainer, cfg *config.OCRConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		engine:  engine,
		store:   store,
		idx:     idx,
		lang:    cfg.Language,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Language returns the configured default recognition language.
func (o *Orchestrator) Language() string { return o.lang }

// RecognizePage runs the engine on one page image with the configured
// timeout. A timeout is reported as an error for this page only; callers
// treat it like any other per-page recognition failure.
func (o *Orchestrator) RecognizePage(ctx context.Context, imagePath, language string) (Result, error) {
	if language == "" {
		language = o.lang
	}
	tctx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.engine.Recognize(tctx, imagePath, language)
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-tctx.Done():
		return Result{}, fmt.Errorf("recognition timed out after %s: %w", o.timeout, tctx.Err())
	case out := <-done:
		return out.res, out.err
	}
}

// ReprocessDocument runs batch OCR over an existing document. force false
// selects only pages with no OCR text; force true reprocesses every active
// page. Pages are processed independently; per-page errors are collected in
// the result rather than failing the run.
func (o *Orchestrator) ReprocessDocument(ctx context.Context, documentID int64, force bool) (*models.OCRRunResult, error) {
	doc, err := o.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	pages, err := o.store.PagesForOCR(ctx, documentID, force)
	if err != nil {
		return nil, err
	}

	result := &models.OCRRunResult{TotalPages: doc.TotalPages}
	anyText := false
	for _, page := range pages {
		res, err := o.RecognizePage(ctx, page.FilePath, page.OCRLanguage)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("page OCR failed",
					zap.Int64("page_id", page.ID),
					zap.Int("page_number", page.PageNumber),
					zap.Error(err))
			}
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", page.PageNumber, err))
			continue
		}

		now := time.Now()
		upd := storage.OCRUpdate{
			Text:        res.Text,
			Confidence:  res.Confidence,
			Language:    o.lang,
			WordCount:   res.WordCount,
			ProcessedAt: now,
		}
		if err := o.store.UpdatePageOCR(ctx, page.ID, upd); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: store result: %v", page.PageNumber, err))
			continue
		}
		if err := o.idx.Upsert(ctx, index.PageEntry{
			PageID:        page.ID,
			DocumentID:    doc.ID,
			ProjectID:     doc.ProjectID,
			DocumentTitle: doc.Title,
			PageText:      res.Text,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: index: %v", page.PageNumber, err))
		}

		result.ProcessedPages++
		result.TotalWords += res.WordCount
		if strings.TrimSpace(res.Text) != "" {
			anyText = true
		}
	}

	if anyText {
		err = o.store.ApplyIngestAggregates(ctx, documentID, 0, &storage.OCRAggregate{
			Language:    o.lang,
			CompletedAt: time.Now(),
		})
	} else {
		// A force run can erase previously recognized text; recompute the flag.
		_, err = o.store.FixPageCount(ctx, documentID)
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("document flags: %v", err))
	}
	return result, nil
}
