// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dangill-59/zapdm/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		total_pages INTEGER NOT NULL DEFAULT 0,
		has_ocr_text INTEGER NOT NULL DEFAULT 0,
		ocr_language TEXT,
		ocr_completed_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id, status);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		page_order INTEGER NOT NULL,
		file_path TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL DEFAULT '',
		thumbnail_path TEXT,
		source_file_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		ocr_text TEXT,
		ocr_confidence REAL,
		ocr_processed_at TIMESTAMP,
		ocr_language TEXT,
		word_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_document ON pages(document_id, status);
	CREATE INDEX IF NOT EXISTS idx_pages_document_number ON pages(document_id, page_number);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateProject inserts a project.
func (s *SQLiteStorage) CreateProject(ctx context.Context, p *models.Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// GetProject returns a project by ID.
func (s *SQLiteStorage) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.StatusActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (project_id, title, status, total_pages, has_ocr_text, ocr_language, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ProjectID, doc.Title, string(doc.Status), doc.TotalPages, doc.HasOCRText,
		nullString(doc.OCRLanguage), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	doc.ID, err = res.LastInsertId()
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	var lang sql.NullString
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, status, total_pages, has_ocr_text, ocr_language, ocr_completed_at, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.ProjectID, &doc.Title, &doc.Status, &doc.TotalPages, &doc.HasOCRText,
		&lang, &completedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	doc.OCRLanguage = lang.String
	if completedAt.Valid {
		t := completedAt.Time
		doc.OCRCompletedAt = &t
	}
	return &doc, nil
}

// SoftDeleteDocument marks a document and all of its pages deleted. Returns
// the ids of the pages that were active, so the caller can remove their
// search index entries.
func (s *SQLiteStorage) SoftDeleteDocument(ctx context.Context, id int64) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM pages WHERE document_id = ? AND status = ?`, id, string(models.StatusActive))
	if err != nil {
		return nil, err
	}
	var pageIDs []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return nil, err
		}
		pageIDs = append(pageIDs, pid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE pages SET status = ?, updated_at = ? WHERE document_id = ? AND status != ?`,
		string(models.StatusDeleted), now, id, string(models.StatusDeleted)); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(models.StatusDeleted), now, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("document not found: %d", id)
	}
	return pageIDs, tx.Commit()
}

// NextPageNumber returns max(page_number) of the document's active pages + 1,
// or 1 when the document has no active pages. No side effects; callers
// ingesting a multi-page batch must call this once and assign the block
// N..N+k-1 locally.
func (s *SQLiteStorage) NextPageNumber(ctx context.Context, documentID int64) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(page_number), 0) + 1 FROM pages WHERE document_id = ? AND status = ?`,
		documentID, string(models.StatusActive),
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next page number: %w", err)
	}
	return next, nil
}

// CreatePage inserts a page row and sets page.ID.
func (s *SQLiteStorage) CreatePage(ctx context.Context, page *models.Page) error {
	now := time.Now()
	page.CreatedAt = now
	page.UpdatedAt = now
	if page.Status == "" {
		page.Status = models.StatusActive
	}
	if page.PageOrder == 0 {
		page.PageOrder = page.PageNumber
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (document_id, page_number, page_order, file_path, file_name, file_size, mime_type,
		 thumbnail_path, source_file_name, status, ocr_text, ocr_confidence, ocr_processed_at, ocr_language,
		 word_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.DocumentID, page.PageNumber, page.PageOrder, page.FilePath, page.FileName, page.FileSize,
		page.MimeType, nullString(page.ThumbnailPath), page.SourceFileName, string(page.Status),
		nullString(page.OCRText), nullFloat(page.OCRConfidence), nullTime(page.OCRProcessedAt),
		nullString(page.OCRLanguage), page.WordCount, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return err
	}
	page.ID, err = res.LastInsertId()
	return err
}

const pageColumns = `id, document_id, page_number, page_order, file_path, file_name, file_size, mime_type,
	thumbnail_path, source_file_name, status, ocr_text, ocr_confidence, ocr_processed_at, ocr_language,
	word_count, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }) (*models.Page, error) {
	var p models.Page
	var thumb, text, lang sql.NullString
	var conf sql.NullFloat64
	var processedAt sql.NullTime
	err := row.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.PageOrder, &p.FilePath, &p.FileName,
		&p.FileSize, &p.MimeType, &thumb, &p.SourceFileName, &p.Status, &text, &conf, &processedAt,
		&lang, &p.WordCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ThumbnailPath = thumb.String
	p.OCRText = text.String
	p.OCRLanguage = lang.String
	if conf.Valid {
		c := conf.Float64
		p.OCRConfidence = &c
	}
	if processedAt.Valid {
		t := processedAt.Time
		p.OCRProcessedAt = &t
	}
	return &p, nil
}

// GetPage returns a page by ID.
func (s *SQLiteStorage) GetPage(ctx context.Context, id int64) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("page not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ListPages returns the active pages of a document in display order.
func (s *SQLiteStorage) ListPages(ctx context.Context, documentID int64) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE document_id = ? AND status = ? ORDER BY page_order, page_number`,
		documentID, string(models.StatusActive),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// ReorderPages applies the given {page id, page number} pairs inside a single
// transaction. Ownership is enforced by the update predicate: a pair whose
// page does not belong to documentID affects zero rows and is silently
// skipped. Returns the number of pages actually updated.
func (s *SQLiteStorage) ReorderPages(ctx context.Context, documentID int64, order []models.PageOrderEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE pages SET page_number = ?, page_order = ?, updated_at = ? WHERE id = ? AND document_id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now()
	updated := 0
	for _, entry := range order {
		res, err := stmt.ExecContext(ctx, entry.PageNumber, entry.PageNumber, now, entry.PageID, documentID)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}
	return updated, tx.Commit()
}

// SoftDeletePage marks a page deleted, recomputes the parent document's
// total_pages from the remaining active pages, and refreshes has_ocr_text.
// The caller is responsible for removing the page's search index entry.
func (s *SQLiteStorage) SoftDeletePage(ctx context.Context, pageID int64) (int64, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	var documentID int64
	err = tx.QueryRowContext(ctx,
		`SELECT document_id FROM pages WHERE id = ? AND status = ?`, pageID, string(models.StatusActive),
	).Scan(&documentID)
	if err == sql.ErrNoRows {
		return 0, 0, fmt.Errorf("page not found: %d", pageID)
	}
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE pages SET status = ?, updated_at = ? WHERE id = ?`,
		string(models.StatusDeleted), now, pageID); err != nil {
		return 0, 0, err
	}

	remaining, hasText, err := documentCounters(ctx, tx, documentID)
	if err != nil {
		return 0, 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET total_pages = ?, has_ocr_text = ?, updated_at = ? WHERE id = ?`,
		remaining, hasText, now, documentID); err != nil {
		return 0, 0, err
	}
	return documentID, remaining, tx.Commit()
}

// UpdatePageOCR applies an OCR result to a page.
func (s *SQLiteStorage) UpdatePageOCR(ctx context.Context, pageID int64, upd OCRUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET ocr_text = ?, ocr_confidence = ?, ocr_processed_at = ?, ocr_language = ?,
		 word_count = ?, updated_at = ? WHERE id = ?`,
		nullString(upd.Text), upd.Confidence, upd.ProcessedAt, nullString(upd.Language),
		upd.WordCount, time.Now(), pageID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page not found: %d", pageID)
	}
	return nil
}

// ApplyIngestAggregates increments the parent document's page counter by the
// batch size and, when the batch produced OCR text, sets the OCR flags. The
// counter is incremented rather than recomputed; FixPageCount repairs drift.
func (s *SQLiteStorage) ApplyIngestAggregates(ctx context.Context, documentID int64, addedPages int, ocr *OCRAggregate) error {
	now := time.Now()
	if ocr != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE documents SET total_pages = total_pages + ?, has_ocr_text = 1,
			 ocr_language = ?, ocr_completed_at = ?, updated_at = ? WHERE id = ?`,
			addedPages, nullString(ocr.Language), ocr.CompletedAt, now, documentID)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET total_pages = total_pages + ?, updated_at = ? WHERE id = ?`,
		addedPages, now, documentID)
	return err
}

// FixPageCount recomputes total_pages and has_ocr_text from the document's
// actual active pages. Repair utility for counter drift after bulk edits.
func (s *SQLiteStorage) FixPageCount(ctx context.Context, documentID int64) (int, error) {
	count, hasText, err := documentCounters(ctx, s.db, documentID)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET total_pages = ?, has_ocr_text = ?, updated_at = ? WHERE id = ?`,
		count, hasText, time.Now(), documentID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("document not found: %d", documentID)
	}
	return count, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func documentCounters(ctx context.Context, q querier, documentID int64) (count int, hasText bool, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(TRIM(COALESCE(ocr_text, '')) != ''), 0) > 0
		 FROM pages WHERE document_id = ? AND status = ?`,
		documentID, string(models.StatusActive),
	).Scan(&count, &hasText)
	return count, hasText, err
}

// PagesForOCR returns the document's active pages selected for a batch OCR
// run: all of them when force is true, otherwise only pages with no OCR text.
func (s *SQLiteStorage) PagesForOCR(ctx context.Context, documentID int64, force bool) ([]*models.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE document_id = ? AND status = ?`
	if !force {
		query += ` AND TRIM(COALESCE(ocr_text, '')) = ''`
	}
	query += ` ORDER BY page_number`
	rows, err := s.db.QueryContext(ctx, query, documentID, string(models.StatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// ActivePagesWithText returns every page qualifying for a search index entry:
// active page with non-empty trimmed OCR text in an active document. Source
// scan for index rebuilds.
func (s *SQLiteStorage) ActivePagesWithText(ctx context.Context) ([]IndexablePage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.document_id, d.project_id, d.title, p.ocr_text
		 FROM pages p
		 JOIN documents d ON d.id = p.document_id
		 WHERE p.status = ? AND d.status = ? AND TRIM(COALESCE(p.ocr_text, '')) != ''
		 ORDER BY p.id`,
		string(models.StatusActive), string(models.StatusActive),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexablePage
	for rows.Next() {
		var ip IndexablePage
		if err := rows.Scan(&ip.PageID, &ip.DocumentID, &ip.ProjectID, &ip.DocumentTitle, &ip.OCRText); err != nil {
			return nil, err
		}
		out = append(out, ip)
	}
	return out, rows.Err()
}

// SearchJoin returns display metadata for the given page ids, restricted to
// active pages of active documents in active projects. Pages filtered out at
// any join level are simply absent from the result.
func (s *SQLiteStorage) SearchJoin(ctx context.Context, pageIDs []int64) ([]PageHitMeta, error) {
	if len(pageIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(pageIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(pageIDs)+3)
	for _, id := range pageIDs {
		args = append(args, id)
	}
	args = append(args, string(models.StatusActive), string(models.StatusActive), string(models.StatusActive))

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.document_id, d.project_id, d.title, pr.name, p.page_number, p.file_name,
		        COALESCE(p.ocr_confidence, 0), p.word_count
		 FROM pages p
		 JOIN documents d ON d.id = p.document_id
		 JOIN projects pr ON pr.id = d.project_id
		 WHERE p.id IN (`+placeholders+`) AND p.status = ? AND d.status = ? AND pr.status = ?`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PageHitMeta
	for rows.Next() {
		var m PageHitMeta
		if err := rows.Scan(&m.PageID, &m.DocumentID, &m.ProjectID, &m.DocumentTitle, &m.ProjectName,
			&m.PageNumber, &m.FileName, &m.OCRConfidence, &m.WordCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountDocuments returns the total number of non-deleted documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE status != ?`, string(models.StatusDeleted)).Scan(&count)
	return count, err
}

// CountPages returns the total number of non-deleted pages.
func (s *SQLiteStorage) CountPages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE status != ?`, string(models.StatusDeleted)).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
