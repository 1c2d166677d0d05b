package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type importRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *importRecorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *importRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &importRecorder{}

	w := NewWatcher(nil, []string{".pdf"}, true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "scans")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	rec := &importRecorder{}
	w := NewWatcher([]string{dir}, []string{".pdf"}, true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(sub, "scan.pdf")
	if err := os.WriteFile(fPath, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	if got := rec.snapshot(); len(got) < 1 {
		t.Errorf("expected at least one import callback, got %d", len(got))
	}
}

func TestWatcher_RemovedFileIsNotImported(t *testing.T) {
	dir := t.TempDir()

	rec := &importRecorder{}
	w := NewWatcher([]string{dir}, []string{".pdf"}, false, rec.record, WithDebounce(300*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(dir, "ghost.pdf")
	if err := os.WriteFile(fPath, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	// Delete before the debounce window closes.
	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("removed file was still imported: %v", got)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/in/scan.pdf", []string{".pdf"}, true},
		{"/in/scan.PDF", []string{".pdf"}, true},
		{"/in/photo.jpg", []string{".pdf"}, false},
		{"/in/readme", nil, true},
		{"/in/readme", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.pdf", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_ImportExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "held.pdf"), []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.tmp"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	rec := &importRecorder{}
	w := NewWatcher([]string{dir}, []string{".pdf"}, true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	w.ImportExistingFiles()

	got := rec.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "held.pdf") {
		t.Errorf("expected one imported file held.pdf, got %v", got)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "inbox", "scans")

	w := NewWatcher([]string{root}, []string{".pdf"}, true, nil)
	// Use Background so run() never races Stop() nilling w.watcher; test exit cleans up.
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_HandleNewDirectory_importsDroppedFolder(t *testing.T) {
	dir := t.TempDir()

	rec := &importRecorder{}
	w := NewWatcher([]string{dir}, []string{".pdf", ".png"}, true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Simulate dropping a folder of scans into the hot folder.
	batch := filepath.Join(dir, "batch-2026-08")
	if err := os.MkdirAll(batch, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(batch, "scan1.pdf"), []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(batch, "scan2.png"), []byte{0x89, 'P', 'N', 'G'}, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(batch, "manifest.csv"), []byte("n,p"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)

	got := rec.snapshot()
	if len(got) < 2 {
		t.Fatalf("expected at least 2 imported files, got %d: %v", len(got), got)
	}
	pdfFound, pngFound := false, false
	for _, p := range got {
		if strings.HasSuffix(p, "scan1.pdf") {
			pdfFound = true
		}
		if strings.HasSuffix(p, "scan2.png") {
			pngFound = true
		}
		if strings.HasSuffix(p, "manifest.csv") {
			t.Error("manifest.csv should not be imported")
		}
	}
	if !pdfFound || !pngFound {
		t.Errorf("expected scan1.pdf and scan2.png to be imported, got %v", got)
	}
}

func TestWatcher_HandleNewDirectory_recursiveSubfolders(t *testing.T) {
	dir := t.TempDir()

	rec := &importRecorder{}
	w := NewWatcher([]string{dir}, []string{".pdf"}, true, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "dept", "invoices")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "deep.pdf"), []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)

	found := false
	for _, p := range rec.snapshot() {
		if strings.HasSuffix(p, "deep.pdf") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected deep.pdf to be imported, got %v", rec.snapshot())
	}
}
