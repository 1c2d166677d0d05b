// Package storage defines the persistence interface for projects, documents, and pages.
package storage

import (
	"context"
	"time"

	"github.com/dangill-59/zapdm/internal/models"
)

// OCRAggregate carries batch-level OCR facts applied to the parent document
// after an ingestion or re-OCR run that produced text.
type OCRAggregate struct {
	Language    string
	CompletedAt time.Time
}

// OCRUpdate is the result of one OCR pass applied to a page.
type OCRUpdate struct {
	Text        string
	Confidence  float64
	Language    string
	WordCount   int
	ProcessedAt time.Time
}

// IndexablePage is one page qualifying for a search index entry: active,
// non-empty OCR text, belonging to an active document.
type IndexablePage struct {
	PageID        int64
	DocumentID    int64
	ProjectID     int64
	DocumentTitle string
	OCRText       string
}

// PageHitMeta carries the display fields joined back from a search index hit.
// Rows are only returned for active pages of active documents in active projects.
type PageHitMeta struct {
	PageID        int64
	DocumentID    int64
	ProjectID     int64
	DocumentTitle string
	ProjectName   string
	PageNumber    int
	FileName      string
	OCRConfidence float64
	WordCount     int
}

// Storage defines project, document, and page persistence operations.
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)

	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	SoftDeleteDocument(ctx context.Context, id int64) (pageIDs []int64, err error)

	// Page operations
	NextPageNumber(ctx context.Context, documentID int64) (int, error)
	CreatePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, id int64) (*models.Page, error)
	ListPages(ctx context.Context, documentID int64) ([]*models.Page, error)
	ReorderPages(ctx context.Context, documentID int64, order []models.PageOrderEntry) (int, error)
	SoftDeletePage(ctx context.Context, pageID int64) (documentID int64, remaining int, err error)
	UpdatePageOCR(ctx context.Context, pageID int64, upd OCRUpdate) error

	// Document aggregation
	ApplyIngestAggregates(ctx context.Context, documentID int64, addedPages int, ocr *OCRAggregate) error
	FixPageCount(ctx context.Context, documentID int64) (int, error)

	// OCR and index scans
	PagesForOCR(ctx context.Context, documentID int64, force bool) ([]*models.Page, error)
	ActivePagesWithText(ctx context.Context) ([]IndexablePage, error)
	SearchJoin(ctx context.Context, pageIDs []int64) ([]PageHitMeta, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountPages(ctx context.Context) (int64, error)

	Close() error
}
