package models

// PageMatch is a single matching page inside a document-level search result.
type PageMatch struct {
	PageID     int64   `json:"page_id"`
	PageNumber int     `json:"page_number"`
	FileName   string  `json:"file_name"`
	Snippet    string  `json:"snippet"`
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence,omitempty"`
	WordCount  int     `json:"word_count,omitempty"`
}

// DocumentHit groups all matching pages of one document.
type DocumentHit struct {
	DocumentID     int64       `json:"document_id"`
	Title          string      `json:"title"`
	ProjectID      int64       `json:"project_id"`
	ProjectName    string      `json:"project_name,omitempty"`
	Matches        []PageMatch `json:"matches"`
	TotalRelevance float64     `json:"total_relevance"`
}

// SearchResponse is the response for a search request. Results are grouped
// by document and sorted by descending total relevance.
type SearchResponse struct {
	Results []*DocumentHit `json:"results"`
	Total   int            `json:"total"`
	HasMore bool           `json:"has_more"`
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// IngestResult reports the outcome of one ingestion batch (a single uploaded
// file). Errors holds per-page recoverable failures (OCR, thumbnail); the
// batch as a whole still succeeded when Errors is non-empty.
type IngestResult struct {
	Pages         []*Page  `json:"pages"`
	TotalPages    int      `json:"total_pages"`
	OCRProcessed  bool     `json:"ocr_processed"`
	OCRWordsFound int      `json:"ocr_words_found"`
	HasOCRText    bool     `json:"has_ocr_text"`
	Errors        []string `json:"errors,omitempty"`
}

// OCRRunResult reports a batch (re-)OCR run over an existing document.
type OCRRunResult struct {
	ProcessedPages int      `json:"processed_pages"`
	TotalPages     int      `json:"total_pages"`
	TotalWords     int      `json:"total_words"`
	Errors         []string `json:"errors,omitempty"`
}
