// Package index maintains the full-text search index over page OCR text.
// The index is derived and disposable: every entry is rebuildable from the
// page and document rows, and RebuildAll is the consistency backstop.
package index

import "context"

// PageEntry is the indexed tuple for one page. An entry exists iff the page
// is active and its trimmed OCR text is non-empty.
type PageEntry struct {
	PageID        int64
	DocumentID    int64
	ProjectID     int64
	DocumentTitle string
	PageText      string
}

// Hit is a single index match.
type Hit struct {
	PageID int64
	Score  float64
	// Fragments are highlighted snippets from the page text.
	Fragments []string
}

// Maintainer defines full-text index operations.
type Maintainer interface {
	// Upsert replaces the entry for entry.PageID. Empty trimmed text removes
	// any existing entry instead of inserting one.
	Upsert(ctx context.Context, entry PageEntry) error
	// Remove deletes the entry for pageID, if any.
	Remove(ctx context.Context, pageID int64) error
	// RemoveAll deletes the entries for all given page ids.
	RemoveAll(ctx context.Context, pageIDs []int64) error
	// RebuildAll clears the index and repopulates it from source. Returns the
	// number of entries written.
	RebuildAll(ctx context.Context, source func(context.Context) ([]PageEntry, error)) (int, error)
	// Search runs a ranked match query over page text. A non-nil projectIDs
	// restricts hits to those projects.
	Search(ctx context.Context, queryText string, projectIDs []int64, topK int) ([]Hit, error)
	// DocCount returns the number of entries in the index.
	DocCount() (uint64, error)
	Close() error
}
