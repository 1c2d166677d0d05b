// Package search answers full-text queries over ingested pages, grouping
// page-level index hits into ranked document results.
package search

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dangill-59/zapdm/internal/config"
	"github.com/dangill-59/zapdm/internal/index"
	"github.com/dangill-59/zapdm/internal/models"
	"github.com/dangill-59/zapdm/internal/storage"
	"github.com/dangill-59/zapdm/pkg/utils"
)

// Engine executes search queries against the index and joins hits back to
// live page and document rows, so deleted or inactive rows never surface even
// when the index lags behind.
type Engine struct {
	store        storage.Storage
	idx          index.Maintainer
	topK         int
	snippetLen   int
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given collaborators.
func NewEngine(store storage.Storage, idx index.Maintainer, cfg *config.SearchConfig, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		idx:          idx,
		topK:         cfg.TopKCandidates,
		snippetLen:   cfg.SnippetLength,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
	if e.topK <= 0 {
		e.topK = 500
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs one query under the caller's access filter. Results are grouped
// by document, ordered by descending summed page relevance, and paginated by
// the query's limit and offset. Total counts matching documents, not pages.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery, access models.AccessFilter) (*models.SearchResponse, error) {
	if err := q.Validate(e.defaultLimit, e.maxLimit); err != nil {
		return nil, err
	}
	resp := &models.SearchResponse{
		Results: []*models.DocumentHit{},
		Query:   q.Query,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}

	projectIDs, ok := scopedProjects(q, access)
	if !ok {
		return resp, nil
	}

	hits, err := e.idx.Search(ctx, q.Query, projectIDs, e.topK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return resp, nil
	}

	byPage := make(map[int64]index.Hit, len(hits))
	pageIDs := make([]int64, 0, len(hits))
	for _, h := range hits {
		byPage[h.PageID] = h
		pageIDs = append(pageIDs, h.PageID)
	}

	// Join back through the database: rows deleted since indexing drop out here.
	metas, err := e.store.SearchJoin(ctx, pageIDs)
	if err != nil {
		return nil, err
	}

	docs := make(map[int64]*models.DocumentHit)
	var order []int64
	for _, m := range metas {
		hit := byPage[m.PageID]
		doc, seen := docs[m.DocumentID]
		if !seen {
			doc = &models.DocumentHit{
				DocumentID:  m.DocumentID,
				Title:       m.DocumentTitle,
				ProjectID:   m.ProjectID,
				ProjectName: m.ProjectName,
			}
			docs[m.DocumentID] = doc
			order = append(order, m.DocumentID)
		}
		doc.Matches = append(doc.Matches, models.PageMatch{
			PageID:     m.PageID,
			PageNumber: m.PageNumber,
			FileName:   m.FileName,
			Snippet:    e.snippet(hit.Fragments),
			Relevance:  hit.Score,
			Confidence: m.OCRConfidence,
			WordCount:  m.WordCount,
		})
		doc.TotalRelevance += hit.Score
	}

	results := make([]*models.DocumentHit, 0, len(order))
	for _, id := range order {
		doc := docs[id]
		sort.SliceStable(doc.Matches, func(i, j int) bool {
			return doc.Matches[i].Relevance > doc.Matches[j].Relevance
		})
		results = append(results, doc)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalRelevance > results[j].TotalRelevance
	})

	resp.Total = len(results)
	resp.Results = paginate(results, q.Offset, q.Limit)
	resp.HasMore = q.Offset+len(resp.Results) < resp.Total

	if e.logger != nil {
		e.logger.Debug("search executed",
			zap.String("query", q.Query),
			zap.Int("candidates", len(hits)),
			zap.Int("documents", resp.Total))
	}
	return resp, nil
}

// scopedProjects resolves the query's project filter against the caller's
// access. ok is false when the scope is provably empty.
func scopedProjects(q *models.SearchQuery, access models.AccessFilter) ([]int64, bool) {
	allowed, ok := access.AllowedProjects()
	if !ok {
		return nil, false
	}
	if q.ProjectID == 0 {
		return allowed, true
	}
	if allowed == nil {
		return []int64{q.ProjectID}, true
	}
	for _, id := range allowed {
		if id == q.ProjectID {
			return []int64{q.ProjectID}, true
		}
	}
	return nil, false
}

func (e *Engine) snippet(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	return utils.Truncate(strings.Join(fragments, " ... "), e.snippetLen)
}

func paginate(results []*models.DocumentHit, offset, limit int) []*models.DocumentHit {
	if offset >= len(results) {
		return []*models.DocumentHit{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
