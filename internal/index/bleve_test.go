package index

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "pages.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_UpsertAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := PageEntry{
		PageID:        42,
		DocumentID:    7,
		ProjectID:     3,
		DocumentTitle: "Invoice batch",
		PageText:      "Invoice #123 for Omnisyan consulting services.",
	}
	if err := idx.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := idx.Search(ctx, "Omnisyan", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].PageID != 42 {
		t.Errorf("page id: got %d", hits[0].PageID)
	}
	if len(hits[0].Fragments) == 0 {
		t.Error("expected a highlighted fragment")
	}

	// Standard analyzer: lowercase query matches capitalized text.
	hits, _ = idx.Search(ctx, "invoice", nil, 10)
	if len(hits) != 1 {
		t.Errorf("lowercase query: got %d hits", len(hits))
	}
}

func TestBleveIndex_UpsertReplacesStaleText(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := PageEntry{PageID: 1, DocumentID: 1, ProjectID: 1, DocumentTitle: "Doc", PageText: "original wording"}
	if err := idx.Upsert(ctx, entry); err != nil {
		t.Fatal(err)
	}
	entry.PageText = "replacement wording"
	if err := idx.Upsert(ctx, entry); err != nil {
		t.Fatal(err)
	}

	hits, _ := idx.Search(ctx, "original", nil, 10)
	if len(hits) != 0 {
		t.Error("stale text must not match after upsert")
	}
	hits, _ = idx.Search(ctx, "replacement", nil, 10)
	if len(hits) != 1 {
		t.Errorf("replacement text: got %d hits", len(hits))
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("doc count: got %d, want 1", n)
	}
}

func TestBleveIndex_EmptyTextRemovesEntry(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := PageEntry{PageID: 5, DocumentID: 1, ProjectID: 1, DocumentTitle: "Doc", PageText: "something"}
	if err := idx.Upsert(ctx, entry); err != nil {
		t.Fatal(err)
	}
	entry.PageText = "   "
	if err := idx.Upsert(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("whitespace-only text must leave no entry: count %d", n)
	}
}

func TestBleveIndex_ProjectFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, PageEntry{PageID: 1, DocumentID: 1, ProjectID: 10, DocumentTitle: "A", PageText: "shared term alpha"})
	_ = idx.Upsert(ctx, PageEntry{PageID: 2, DocumentID: 2, ProjectID: 20, DocumentTitle: "B", PageText: "shared term beta"})

	hits, err := idx.Search(ctx, "shared", []int64{10}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].PageID != 1 {
		t.Errorf("project filter: got %+v", hits)
	}

	hits, _ = idx.Search(ctx, "shared", []int64{10, 20}, 10)
	if len(hits) != 2 {
		t.Errorf("two projects: got %d hits", len(hits))
	}

	// nil means unrestricted.
	hits, _ = idx.Search(ctx, "shared", nil, 10)
	if len(hits) != 2 {
		t.Errorf("unrestricted: got %d hits", len(hits))
	}
}

func TestBleveIndex_RebuildAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Seed stale entries that the rebuild must discard.
	_ = idx.Upsert(ctx, PageEntry{PageID: 100, DocumentID: 9, ProjectID: 9, DocumentTitle: "Old", PageText: "stale entry"})
	_ = idx.Upsert(ctx, PageEntry{PageID: 101, DocumentID: 9, ProjectID: 9, DocumentTitle: "Old", PageText: "another stale entry"})

	source := func(context.Context) ([]PageEntry, error) {
		return []PageEntry{
			{PageID: 1, DocumentID: 1, ProjectID: 1, DocumentTitle: "Doc", PageText: "fresh content one"},
			{PageID: 2, DocumentID: 1, ProjectID: 1, DocumentTitle: "Doc", PageText: "fresh content two"},
			{PageID: 3, DocumentID: 1, ProjectID: 1, DocumentTitle: "Doc", PageText: "  "}, // skipped
		}, nil
	}

	n, err := idx.RebuildAll(ctx, source)
	if err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	if n != 2 {
		t.Errorf("written: got %d, want 2", n)
	}
	if count, _ := idx.DocCount(); count != 2 {
		t.Errorf("doc count: got %d, want 2", count)
	}
	hits, _ := idx.Search(ctx, "stale", nil, 10)
	if len(hits) != 0 {
		t.Error("stale entries must be gone after rebuild")
	}

	// Idempotence: a second rebuild with the same source yields the same count.
	n2, err := idx.RebuildAll(ctx, source)
	if err != nil {
		t.Fatal(err)
	}
	if n2 != n {
		t.Errorf("second rebuild: got %d, want %d", n2, n)
	}
	if count, _ := idx.DocCount(); count != 2 {
		t.Errorf("doc count after second rebuild: got %d", count)
	}
}

func TestBleveIndex_RemoveAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Upsert(ctx, PageEntry{PageID: 1, DocumentID: 1, ProjectID: 1, DocumentTitle: "D", PageText: "one"})
	_ = idx.Upsert(ctx, PageEntry{PageID: 2, DocumentID: 1, ProjectID: 1, DocumentTitle: "D", PageText: "two"})
	_ = idx.Upsert(ctx, PageEntry{PageID: 3, DocumentID: 1, ProjectID: 1, DocumentTitle: "D", PageText: "three"})

	if err := idx.RemoveAll(ctx, []int64{1, 3}); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("doc count: got %d, want 1", n)
	}
}
