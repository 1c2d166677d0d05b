// Package raster converts uploaded files into ordered page images: PDFs are
// split into one raster image per page through an external renderer, single
// image uploads pass through as a one-page batch.
package raster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ErrUnsupportedType marks uploads outside the PDF/JPEG/PNG/TIFF allow-list.
var ErrUnsupportedType = errors.New("unsupported file type")

// PageImage is one rasterized page in batch order. SourceIndex is the
// zero-based position within the source file; final page numbers are assigned
// by the ingestion pipeline, not here.
type PageImage struct {
	ImagePath   string
	SourceIndex int
}

// Options controls rasterization.
type Options struct {
	// Density is the render resolution in DPI.
	Density int
	// Format is the raster output format; "png" when empty.
	Format string
}

// Renderer splits a source file into ordered page images written under
// outDir. Output ordering matches the source's page order. If the source
// cannot be parsed the whole call fails; the caller cleans up outDir.
type Renderer interface {
	Split(ctx context.Context, srcPath, outDir string, opts Options) ([]PageImage, error)
}

// MIME types accepted for direct image uploads.
const (
	MIMEPDF  = "application/pdf"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMETIFF = "image/tiff"
)

var allowedImageMIMEs = map[string]bool{
	MIMEJPEG: true,
	MIMEPNG:  true,
	MIMETIFF: true,
}

// DetectMIME sniffs the file's content type from its leading bytes.
func DetectMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if n == 0 && err != nil {
		return "", fmt.Errorf("read file header: %w", err)
	}
	head := buf[:n]
	// TIFF magic is not covered by the standard sniffer.
	if len(head) >= 4 && (string(head[:4]) == "II*\x00" || string(head[:4]) == "MM\x00*") {
		return MIMETIFF, nil
	}
	mime := http.DetectContentType(head)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return mime, nil
}

// ValidateImageMIME returns the detected MIME type if the file is an allowed
// image upload (JPEG, PNG, TIFF), or an error for anything else.
func ValidateImageMIME(path string) (string, error) {
	mime, err := DetectMIME(path)
	if err != nil {
		return "", err
	}
	if !allowedImageMIMEs[mime] {
		return "", fmt.Errorf("%w %q: allowed types are JPEG, PNG, TIFF", ErrUnsupportedType, mime)
	}
	return mime, nil
}

// IsPDF reports whether the file at path is a PDF.
func IsPDF(path string) (bool, error) {
	mime, err := DetectMIME(path)
	if err != nil {
		return false, err
	}
	return mime == MIMEPDF, nil
}
