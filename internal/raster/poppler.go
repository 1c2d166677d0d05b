package raster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// PopplerRenderer rasterizes PDFs by shelling out to pdftoppm (poppler-utils).
type PopplerRenderer struct {
	binPath string
	logger  *zap.Logger // optional; when set, logs debug events
}

// PopplerOption configures a PopplerRenderer.
type PopplerOption func(*PopplerRenderer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) PopplerOption {
	return func(r *PopplerRenderer) { r.logger = l }
}

// NewPopplerRenderer locates pdftoppm on PATH and returns a renderer backed by it.
func NewPopplerRenderer(opts ...PopplerOption) (*PopplerRenderer, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm not found (install poppler-utils): %w", err)
	}
	r := &PopplerRenderer{binPath: bin}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Split renders each page of the PDF at srcPath into outDir and returns the
// page images in document order. A corrupt or unreadable PDF fails the whole
// call with no images reported; temp files under outDir are the caller's to
// remove on failure.
func (r *PopplerRenderer) Split(ctx context.Context, srcPath, outDir string, opts Options) ([]PageImage, error) {
	format := opts.Format
	if format == "" {
		format = "png"
	}
	density := opts.Density
	if density <= 0 {
		density = 200
	}
	prefix := filepath.Join(outDir, "page")

	args := []string{"-" + format, "-r", strconv.Itoa(density), srcPath, prefix}
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if r.logger != nil {
		r.logger.Debug("rasterizing PDF", zap.String("src", srcPath), zap.Int("density", density))
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("pdftoppm failed: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	pages, err := collectPageImages(outDir, "page", format)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", srcPath)
	}
	if r.logger != nil {
		r.logger.Debug("PDF rasterized", zap.String("src", srcPath), zap.Int("pages", len(pages)))
	}
	return pages, nil
}

// collectPageImages gathers pdftoppm outputs named <prefix>-<n>.<format>
// (n possibly zero-padded) and returns them ordered by page index.
func collectPageImages(dir, prefix, format string) ([]PageImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*."+format))
	if err != nil {
		return nil, err
	}
	type numbered struct {
		path string
		n    int
	}
	var found []numbered
	for _, m := range matches {
		base := filepath.Base(m)
		numPart := strings.TrimSuffix(strings.TrimPrefix(base, prefix+"-"), "."+format)
		n, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		found = append(found, numbered{path: m, n: n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	pages := make([]PageImage, len(found))
	for i, f := range found {
		pages[i] = PageImage{ImagePath: f.path, SourceIndex: i}
	}
	return pages, nil
}
