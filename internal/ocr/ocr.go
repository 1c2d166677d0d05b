// Package ocr runs text recognition over page images and applies the results
// to page rows and the search index.
package ocr

import "context"

// Result is a normalized recognition result for one page image.
type Result struct {
	Text string
	// Confidence is the mean word confidence, 0-100.
	Confidence float64
	WordCount  int
}

// Engine is the text recognition provider contract: one page image in, one
// result out. A failed call is recoverable from the caller's point of view;
// it never aborts sibling pages.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath, language string) (Result, error)
}
