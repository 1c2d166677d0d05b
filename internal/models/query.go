package models

import (
	"fmt"
	"strings"
)

// MinQueryLength is the minimum number of characters a search query must
// have after trimming.
const MinQueryLength = 2

// ErrQueryTooShort is returned by Validate when the trimmed query is shorter
// than MinQueryLength.
var ErrQueryTooShort = fmt.Errorf("query must be at least %d characters", MinQueryLength)

// SearchQuery represents a full-text search request.
type SearchQuery struct {
	Query     string `json:"query"`
	ProjectID int64  `json:"project_id,omitempty"` // 0 means no project filter beyond access
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// AccessFilter is the caller's authorization context, supplied by the outer
// layer and used only as a read-only filter on search results.
type AccessFilter struct {
	Admin      bool    `json:"admin"`
	ProjectIDs []int64 `json:"project_ids,omitempty"`
}

// AllowedProjects returns the project ids a search should be scoped to, or
// nil when the caller may see every project. ok is false when the caller has
// access to no projects at all.
func (a AccessFilter) AllowedProjects() (ids []int64, ok bool) {
	if a.Admin {
		return nil, true
	}
	if len(a.ProjectIDs) == 0 {
		return nil, false
	}
	return a.ProjectIDs, true
}

// Validate ensures the query is well formed and normalizes limit and offset.
// A missing limit falls back to defaultLimit and is capped at maxLimit.
// Queries shorter than MinQueryLength characters are rejected.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if len(q.Query) < MinQueryLength {
		return ErrQueryTooShort
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
