package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dtnitsch/llm-event-parser/models"
)

// Crawl run statuses.
const (
	CrawlRunning   = "running"
	CrawlCompleted = "completed"
	CrawlFailed    = "failed"
)

// InsertURL parses and inserts a URL, returning the url_id.
// If the URL already exists, returns the existing url_id.
func (db *DB) InsertURL(rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return 0, fmt.Errorf("failed to parse URL: missing scheme or host: %s", rawURL)
	}

	var existingID int64
	err = db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	canonicalURL := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, parsed.Path)

	result, err := db.Exec(`
		INSERT INTO urls (original_url, canonical_url, scheme, domain, path)
		VALUES (?, ?, ?, ?, ?)
	`, rawURL, canonicalURL, parsed.Scheme, parsed.Hostname(), parsed.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// CreateCrawlRun opens a crawl run in the running state.
func (db *DB) CreateCrawlRun(seedURL, domain string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO crawl_runs (seed_url, domain, status)
		VALUES (?, ?, ?)
	`, seedURL, domain, CrawlRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create crawl run: %w", err)
	}
	crawlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl ID: %w", err)
	}
	return crawlID, nil
}

// FinishCrawlRun records the final status and page count of a run.
func (db *DB) FinishCrawlRun(crawlID int64, status string, pageCount int, errMsg string) error {
	res, err := db.Exec(`
		UPDATE crawl_runs
		SET status = ?, page_count = ?, error = NULLIF(?, ''), finished_at = CURRENT_TIMESTAMP
		WHERE crawl_id = ?
	`, status, pageCount, errMsg, crawlID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("crawl run not found: %d", crawlID)
	}
	return nil
}

// InsertCrawlItem registers a written crawl record. Re-registering the same
// index within a run replaces the previous row.
func (db *DB) InsertCrawlItem(crawlID, urlID int64, index int, filePath, contentHash string) error {
	_, err := db.Exec(`
		INSERT INTO crawl_items (crawl_id, url_id, item_index, file_path, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(crawl_id, item_index) DO UPDATE SET
			url_id = excluded.url_id,
			file_path = excluded.file_path,
			content_hash = excluded.content_hash
	`, crawlID, urlID, index, filePath, contentHash)
	if err != nil {
		return fmt.Errorf("failed to insert crawl item: %w", err)
	}
	return nil
}

// CrawlRun is a row of crawl_runs.
type CrawlRun struct {
	CrawlID    int64
	SeedURL    string
	Domain     string
	Status     string
	PageCount  int
	Error      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// CrawlItem is a row of crawl_items joined with its URL.
type CrawlItem struct {
	Index       int
	URL         string
	FilePath    string
	ContentHash string
}

// ListRuns returns the most recent crawl runs, newest first.
func (db *DB) ListRuns(limit int) ([]CrawlRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT crawl_id, seed_url, domain, status, page_count, COALESCE(error, ''), started_at, finished_at
		FROM crawl_runs
		ORDER BY crawl_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		var r CrawlRun
		if err := rows.Scan(&r.CrawlID, &r.SeedURL, &r.Domain, &r.Status, &r.PageCount, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a crawl run and its items in index order.
func (db *DB) GetRun(crawlID int64) (*CrawlRun, []CrawlItem, error) {
	var r CrawlRun
	err := db.QueryRow(`
		SELECT crawl_id, seed_url, domain, status, page_count, COALESCE(error, ''), started_at, finished_at
		FROM crawl_runs
		WHERE crawl_id = ?
	`, crawlID).Scan(&r.CrawlID, &r.SeedURL, &r.Domain, &r.Status, &r.PageCount, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("crawl run not found: %d", crawlID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	rows, err := db.Query(`
		SELECT i.item_index, u.original_url, i.file_path, i.content_hash
		FROM crawl_items i
		JOIN urls u ON i.url_id = u.url_id
		WHERE i.crawl_id = ?
		ORDER BY i.item_index
	`, crawlID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list crawl items: %w", err)
	}
	defer rows.Close()

	var items []CrawlItem
	for rows.Next() {
		var it CrawlItem
		if err := rows.Scan(&it.Index, &it.URL, &it.FilePath, &it.ContentHash); err != nil {
			return nil, nil, fmt.Errorf("failed to scan crawl item: %w", err)
		}
		items = append(items, it)
	}
	return &r, items, rows.Err()
}

// Extraction is the data recorded for one extractor call.
type Extraction struct {
	URL       string
	RunID     string
	Model     string
	Optimized bool
	Language  string
	Result    models.ExtractionResult
	StartAt   time.Time
	EndAt     time.Time
}

// InsertExtraction stores an extraction, registering its URL if needed.
func (db *DB) InsertExtraction(e Extraction) (int64, error) {
	urlID, err := db.InsertURL(e.URL)
	if err != nil {
		return 0, err
	}

	result, err := db.Exec(`
		INSERT INTO extractions (url_id, run_id, model, optimized, language,
			title, description, location, start_time, end_time, start_at, end_at)
		VALUES (?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
	`, urlID, e.RunID, e.Model, e.Optimized, e.Language,
		e.Result.Title, e.Result.Description, e.Result.Location,
		nullString(e.Result.StartTime), nullString(e.Result.EndTime),
		nullTime(e.StartAt), nullTime(e.EndAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert extraction: %w", err)
	}

	extractionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get extraction ID: %w", err)
	}
	return extractionID, nil
}

// InsertEvaluation stores a score for an extraction.
func (db *DB) InsertEvaluation(extractionID int64, eval models.EvaluationResult) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO evaluations (extraction_id, score, reasoning)
		VALUES (?, ?, ?)
	`, extractionID, eval.Score, eval.Reasoning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert evaluation: %w", err)
	}
	evaluationID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get evaluation ID: %w", err)
	}
	return evaluationID, nil
}

// ExtractionSummary is an extraction joined with its latest score.
type ExtractionSummary struct {
	ExtractionID int64
	URL          string
	RunID        string
	Model        string
	Title        string
	Location     string
	StartTime    sql.NullString
	Score        sql.NullFloat64
}

// ListExtractions returns the extractions of a run id in insertion order.
// An empty runID lists extractions made without one.
func (db *DB) ListExtractions(runID string) ([]ExtractionSummary, error) {
	rows, err := db.Query(`
		SELECT e.extraction_id, u.original_url, COALESCE(e.run_id, ''), COALESCE(e.model, ''),
			e.title, e.location, e.start_time,
			(SELECT v.score FROM evaluations v WHERE v.extraction_id = e.extraction_id
			 ORDER BY v.evaluation_id DESC LIMIT 1)
		FROM extractions e
		JOIN urls u ON e.url_id = u.url_id
		WHERE COALESCE(e.run_id, '') = ?
		ORDER BY e.extraction_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	defer rows.Close()

	var out []ExtractionSummary
	for rows.Next() {
		var s ExtractionSummary
		if err := rows.Scan(&s.ExtractionID, &s.URL, &s.RunID, &s.Model, &s.Title, &s.Location, &s.StartTime, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan extraction: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
