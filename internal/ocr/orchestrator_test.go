package ocr

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/index"
	"github.com/dangill-59/zapdm/internal/models"
	"github.com/dangill-59/zapdm/internal/storage"
)

// fakeEngine returns canned results keyed by image path.
type fakeEngine struct {
	results map[string]Result
	failOn  map[string]bool
	delay   time.Duration
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, imagePath, language string) (Result, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failOn[imagePath] {
		return Result{}, errors.New("engine crashed")
	}
	return f.results[imagePath], nil
}

func newTestDeps(t *testing.T) (*storage.SQLiteStorage, *index.BleveIndex) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := index.NewBleveIndex(filepath.Join(dir, "pages.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = idx.Close()
	})
	return store, idx
}

func seedDocument(t *testing.T, store *storage.SQLiteStorage, pageFiles []string) *models.Document {
	t.Helper()
	ctx := context.Background()
	project := &models.Project{Name: "P"}
	if err := store.CreateProject(ctx, project); err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{ProjectID: project.ID, Title: "Scans"}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	for i, fp := range pageFiles {
		page := &models.Page{
			DocumentID: doc.ID,
			PageNumber: i + 1,
			FilePath:   fp,
			FileName:   filepath.Base(fp),
			MimeType:   "image/png",
		}
		if err := store.CreatePage(ctx, page); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.ApplyIngestAggregates(ctx, doc.ID, len(pageFiles), nil); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestReprocessDocument_PartialFailure(t *testing.T) {
	store, idx := newTestDeps(t)
	doc := seedDocument(t, store, []string{"/img/p1.png", "/img/p2.png", "/img/p3.png"})

	engine := &fakeEngine{
		results: map[string]Result{
			"/img/p1.png": {Text: "first page text", Confidence: 90, WordCount: 3},
			"/img/p3.png": {Text: "third page text", Confidence: 85, WordCount: 3},
		},
		failOn: map[string]bool{"/img/p2.png": true},
	}
	o := NewOrchestrator(engine, store, idx, &config.OCRConfig{Language: "eng", TimeoutSeconds: 10})

	result, err := o.ReprocessDocument(context.Background(), doc.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.ProcessedPages != 2 {
		t.Errorf("processed: got %d, want 2", result.ProcessedPages)
	}
	if result.TotalPages != 3 {
		t.Errorf("total: got %d, want 3", result.TotalPages)
	}
	if result.TotalWords != 6 {
		t.Errorf("words: got %d, want 6", result.TotalWords)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "page 2") {
		t.Errorf("errors should mention page 2: %v", result.Errors)
	}

	got, _ := store.GetDocument(context.Background(), doc.ID)
	if !got.HasOCRText {
		t.Error("has_ocr_text should be true")
	}
	if got.OCRLanguage != "eng" {
		t.Errorf("ocr_language: got %q", got.OCRLanguage)
	}

	hits, err := idx.Search(context.Background(), "third", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("index should contain the recognized page: %d hits", len(hits))
	}
}

func TestReprocessDocument_SelectionModes(t *testing.T) {
	store, idx := newTestDeps(t)
	doc := seedDocument(t, store, []string{"/img/a.png", "/img/b.png"})
	ctx := context.Background()

	engine := &fakeEngine{results: map[string]Result{
		"/img/a.png": {Text: "alpha", Confidence: 90, WordCount: 1},
		"/img/b.png": {Text: "beta", Confidence: 90, WordCount: 1},
	}}
	o := NewOrchestrator(engine, store, idx, &config.OCRConfig{Language: "eng", TimeoutSeconds: 10})

	// First run recognizes both pages.
	result, err := o.ReprocessDocument(ctx, doc.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.ProcessedPages != 2 {
		t.Fatalf("first run: processed %d", result.ProcessedPages)
	}

	// Default mode skips pages that already have text.
	result, _ = o.ReprocessDocument(ctx, doc.ID, false)
	if result.ProcessedPages != 0 {
		t.Errorf("missing-only rerun: processed %d, want 0", result.ProcessedPages)
	}

	// Force reprocesses everything.
	result, _ = o.ReprocessDocument(ctx, doc.ID, true)
	if result.ProcessedPages != 2 {
		t.Errorf("force rerun: processed %d, want 2", result.ProcessedPages)
	}
}

func TestRecognizePage_Timeout(t *testing.T) {
	engine := &fakeEngine{delay: 500 * time.Millisecond}
	o := &Orchestrator{engine: engine, lang: "eng", timeout: 50 * time.Millisecond}

	_, err := o.RecognizePage(context.Background(), "/img/slow.png", "")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("got %v", err)
	}
}
