// Package index provides the Bleve implementation of Maintainer.
package index

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// pageDoc is the shape Bleve indexes per page.
type pageDoc struct {
	DocumentID    string `json:"document_id"`
	ProjectID     string `json:"project_id"`
	DocumentTitle string `json:"document_title"`
	PageText      string `json:"page_text"`
}

// BleveIndex implements Maintainer using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused; remove the index directory (or call RebuildAll) after a
// mapping change to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query term
	// matches the exact recognized word.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("page_text", textFieldMapping)
	docMapping.AddFieldMappingsAt("document_title", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("document_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("project_id", keywordFieldMapping)
	im.AddDocumentMapping("page", docMapping)
	im.DefaultType = "page"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func pageKey(pageID int64) string {
	return strconv.FormatInt(pageID, 10)
}

// Upsert replaces the entry keyed by entry.PageID. Bleve's Index overwrites
// an existing document with the same id, so a re-OCR run updates in place.
// Empty trimmed text deletes instead: an empty entry would match everything.
func (b *BleveIndex) Upsert(ctx context.Context, entry PageEntry) error {
	if strings.TrimSpace(entry.PageText) == "" {
		return b.Remove(ctx, entry.PageID)
	}
	doc := pageDoc{
		DocumentID:    strconv.FormatInt(entry.DocumentID, 10),
		ProjectID:     strconv.FormatInt(entry.ProjectID, 10),
		DocumentTitle: entry.DocumentTitle,
		PageText:      entry.PageText,
	}
	return b.index.Index(pageKey(entry.PageID), doc)
}

// Remove deletes the entry for pageID. Removing an absent entry is not an error.
func (b *BleveIndex) Remove(ctx context.Context, pageID int64) error {
	return b.index.Delete(pageKey(pageID))
}

// RemoveAll deletes the entries for all given page ids in one batch.
func (b *BleveIndex) RemoveAll(ctx context.Context, pageIDs []int64) error {
	if len(pageIDs) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range pageIDs {
		batch.Delete(pageKey(id))
	}
	return b.index.Batch(batch)
}

const rebuildBatchSize = 500

// RebuildAll clears every entry and repopulates the index from source.
// Usable as a repair operation after bulk data edits.
func (b *BleveIndex) RebuildAll(ctx context.Context, source func(context.Context) ([]PageEntry, error)) (int, error) {
	if err := b.clear(); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}
	entries, err := source(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan pages for rebuild: %w", err)
	}

	written := 0
	batch := b.index.NewBatch()
	for _, entry := range entries {
		if strings.TrimSpace(entry.PageText) == "" {
			continue
		}
		doc := pageDoc{
			DocumentID:    strconv.FormatInt(entry.DocumentID, 10),
			ProjectID:     strconv.FormatInt(entry.ProjectID, 10),
			DocumentTitle: entry.DocumentTitle,
			PageText:      entry.PageText,
		}
		if err := batch.Index(pageKey(entry.PageID), doc); err != nil {
			return written, err
		}
		written++
		if batch.Size() >= rebuildBatchSize {
			if err := b.index.Batch(batch); err != nil {
				return written, err
			}
			batch = b.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (b *BleveIndex) clear() error {
	for {
		req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
		req.Size = rebuildBatchSize
		results, err := b.index.Search(req)
		if err != nil {
			return err
		}
		if len(results.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return err
		}
	}
}

// Search runs a match query over page text, restricted to projectIDs when
// non-nil, and returns up to topK hits with highlighted text fragments.
func (b *BleveIndex) Search(ctx context.Context, queryText string, projectIDs []int64, topK int) ([]Hit, error) {
	match := bleve.NewMatchQuery(queryText)
	match.SetField("page_text")

	var q blevequery.Query = match
	if projectIDs != nil {
		terms := make([]blevequery.Query, 0, len(projectIDs))
		for _, id := range projectIDs {
			tq := bleve.NewTermQuery(strconv.FormatInt(id, 10))
			tq.SetField("project_id")
			terms = append(terms, tq)
		}
		q = bleve.NewConjunctionQuery(match, bleve.NewDisjunctionQuery(terms...))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = topK
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("page_text")

	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Hit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pageID, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Hit{
			PageID:    pageID,
			Score:     hit.Score,
			Fragments: hit.Fragments["page_text"],
		})
	}
	return out, nil
}

// DocCount returns the total number of entries in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
