package raster

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// EmbeddedText extracts the text layer of each PDF page, returning one string
// per page in document order. Pages without a usable text layer yield "";
// only a file that cannot be opened as a PDF at all is an error. Pages with
// embedded text can skip OCR entirely during ingestion.
func EmbeddedText(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	texts := make([]string, numPages)
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i] = strings.TrimSpace(text)
	}
	return texts, nil
}
