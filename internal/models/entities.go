// Package models defines core data structures for projects, documents, pages,
// queries, and search results.
package models

import "time"

// Status is the lifecycle state of a project, document, or page.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDeleted:
		return true
	}
	return false
}

// Project groups documents.
type Project struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Document is a logical container of an ordered set of pages.
// TotalPages is a denormalized counter kept equal to the number of active
// child pages; HasOCRText is true iff at least one active page carries
// non-empty OCR text.
type Document struct {
	ID             int64      `json:"id" db:"id"`
	ProjectID      int64      `json:"project_id" db:"project_id"`
	Title          string     `json:"title" db:"title"`
	Status         Status     `json:"status" db:"status"`
	TotalPages     int        `json:"total_pages" db:"total_pages"`
	HasOCRText     bool       `json:"has_ocr_text" db:"has_ocr_text"`
	OCRLanguage    string     `json:"ocr_language,omitempty" db:"ocr_language"`
	OCRCompletedAt *time.Time `json:"ocr_completed_at,omitempty" db:"ocr_completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Page is one ingested unit of a document: one rasterized PDF page or one
// whole image upload. PageNumber is 1-based and sequential per document at
// allocation time; PageOrder drives display order and may diverge from
// PageNumber under reorder operations.
type Page struct {
	ID             int64      `json:"id" db:"id"`
	DocumentID     int64      `json:"document_id" db:"document_id"`
	PageNumber     int        `json:"page_number" db:"page_number"`
	PageOrder      int        `json:"page_order" db:"page_order"`
	FilePath       string     `json:"file_path" db:"file_path"`
	FileName       string     `json:"file_name" db:"file_name"`
	FileSize       int64      `json:"file_size" db:"file_size"`
	MimeType       string     `json:"mime_type" db:"mime_type"`
	ThumbnailPath  string     `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	SourceFileName string     `json:"source_file_name" db:"source_file_name"`
	Status         Status     `json:"status" db:"status"`
	OCRText        string     `json:"ocr_text,omitempty" db:"ocr_text"`
	OCRConfidence  *float64   `json:"ocr_confidence,omitempty" db:"ocr_confidence"`
	OCRProcessedAt *time.Time `json:"ocr_processed_at,omitempty" db:"ocr_processed_at"`
	OCRLanguage    string     `json:"ocr_language,omitempty" db:"ocr_language"`
	WordCount      int        `json:"word_count" db:"word_count"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// PageOrderEntry is one {page id, new page number} pair for a reorder call.
type PageOrderEntry struct {
	PageID     int64 `json:"page_id"`
	PageNumber int   `json:"page_number"`
}
